package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotbar/spotbar/internal/palette"
	"github.com/spotbar/spotbar/internal/services"
	"github.com/spotbar/spotbar/internal/shared"
)

// PlaybackSource fetches the current playback snapshot. Implemented by
// services.SpotifyClient.
type PlaybackSource interface {
	CurrentTrack(ctx context.Context) (*services.TrackSnapshot, error)
}

// Poller is the periodic now-playing loop.
//
// Each cycle fetches a snapshot, publishes progress, and on a track change
// extracts the album color, emits one notification, and records the play.
// A failing cycle never crashes the loop or disturbs the last good state.
type Poller struct {
	source   PlaybackSource
	state    *PlaybackState
	history  *History
	interval time.Duration
	logger   *log.Logger

	httpClient *http.Client
	fetchColor func(ctx context.Context, url string) (string, error)
}

// NewPoller creates a poller publishing into state. history may be nil to
// disable play recording.
func NewPoller(source PlaybackSource, state *PlaybackState, history *History, interval time.Duration, logger *log.Logger) *Poller {
	p := &Poller{
		source:     source,
		state:      state,
		history:    history,
		interval:   interval,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	p.fetchColor = p.fetchArtColor
	return p
}

// State returns the playback state this poller publishes into.
func (p *Poller) State() *PlaybackState {
	return p.state
}

// Run polls on the configured interval until ctx is cancelled. The first
// cycle runs immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one cycle. Errors are terminal per cycle: logged, never
// propagated.
func (p *Poller) poll(ctx context.Context) {
	snapshot, err := p.source.CurrentTrack(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			p.state.clearPlayback()
			return
		}
		p.logger.Warn("poll cycle failed", "error", err)
		return
	}

	if snapshot == nil {
		p.state.clearPlayback()
		return
	}

	p.state.setProgress(snapshot.Progress)

	if snapshot.DisplayName == p.state.LastTrack() {
		return
	}

	color := ""
	if snapshot.AlbumImageURL != "" {
		if c, err := p.fetchColor(ctx, snapshot.AlbumImageURL); err != nil {
			p.logger.Warn("album color extraction failed", "error", err)
		} else {
			color = c
		}
	}

	p.state.beginTrack(snapshot.DisplayName, color)
	p.logger.Info("now playing", "track", snapshot.DisplayName, "color", color)

	if p.history != nil {
		if err := p.history.Record(snapshot.DisplayName, color); err != nil {
			p.logger.Warn("failed to record play", "error", err)
		}
	}
}

// fetchArtColor downloads album art and extracts its dominant color.
func (p *Poller) fetchArtColor(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create art request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch album art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("album art fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read album art: %w", err)
	}

	return palette.Extract(data)
}
