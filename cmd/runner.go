package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spotbar/spotbar/internal/auth"
	"github.com/spotbar/spotbar/internal/services"
	"github.com/spotbar/spotbar/internal/shared"
	"github.com/spotbar/spotbar/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Player is the playback control surface the commands dispatch to.
// Implemented by [services.SpotifyClient].
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Skip(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	SetRepeat(ctx context.Context, mode string) error
	SearchAndPlay(ctx context.Context, query string) (string, bool, error)
	CurrentTrack(ctx context.Context) (*services.TrackSnapshot, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	store  *auth.Store
	flow   *auth.Flow
	player Player
	state  *tasks.PlaybackState
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Store  *auth.Store
	Flow   *auth.Flow
	Player Player
	State  *tasks.PlaybackState
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.State == nil {
		opts.State = tasks.NewPlaybackState()
	}

	return &Runner{
		config: opts.Config,
		store:  opts.Store,
		flow:   opts.Flow,
		player: opts.Player,
		state:  opts.State,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, statusCommand,
		resumeCommand, playCommand, pauseCommand, skipCommand, previousCommand,
		loopCommand, volumeCommand, currentCommand, nowCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// checkAuth fails fast with a hint when no session exists, before any
// network call is attempted.
func (r *Runner) checkAuth() error {
	if r.store == nil || !r.store.HasSession() {
		return fmt.Errorf("%w: run 'spotbar login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// openHistory opens the play history database on demand. The returned
// cleanup closes it.
func (r *Runner) openHistory() (*tasks.History, func(), error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	history, err := tasks.NewHistory(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return history, func() { db.Close() }, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
