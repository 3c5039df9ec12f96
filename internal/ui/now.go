// Package ui renders the live now-playing view: a progress bar tinted with
// the current album's dominant color plus one-shot track notifications.
//
// The view only consumes the published playback state; all polling happens
// in the tasks package.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spotbar/spotbar/internal/palette"
	"github.com/spotbar/spotbar/internal/tasks"
)

// refreshRate is how often the view re-reads the playback state. Independent
// of the poll interval: the bar animates smoothly even between polls.
const refreshRate = 500 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// keyMap defines the key bindings for the now-playing view.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NowModel is the bubbletea model for the now-playing view.
type NowModel struct {
	state *tasks.PlaybackState
	bar   progress.Model
	color string
	track string
	width int
	keys  keyMap
}

// NewNowModel creates the view reading from state.
func NewNowModel(state *tasks.PlaybackState) NowModel {
	return NowModel{
		state: state,
		bar:   progress.New(progress.WithSolidFill(palette.Fallback)),
		color: palette.Fallback,
		keys:  newKeyMap(),
	}
}

func (m NowModel) Init() tea.Cmd {
	return tick()
}

func (m NowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 4

	case tickMsg:
		if n := m.state.TakeNotification(); n != nil {
			m.track = n.Track
		}

		color := palette.Fallback
		if c, ok := m.state.Color(); ok {
			color = c
		}
		if color != m.color {
			m.color = color
			width := m.bar.Width
			m.bar = progress.New(progress.WithSolidFill(color))
			m.bar.Width = width
		}

		return m, tick()
	}

	return m, nil
}

func (m NowModel) View() string {
	view := styles.title.Render("spotbar") + "\n"

	if !m.state.Playing() {
		view += "Nothing playing\n"
	} else {
		if m.track != "" {
			view += styles.track.Render("♪ "+m.track) + "\n"
		}
		view += m.bar.ViewAs(clamp(m.state.Progress())) + "\n"
	}

	view += "\n" + styles.help.Render("q quit")
	return view
}

// clamp bounds the advisory progress ratio for rendering. Upstream values
// can transiently exceed [0,1].
func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
