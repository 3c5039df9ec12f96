package main

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spotbar/spotbar/internal/shared"
	"github.com/spotbar/spotbar/internal/tasks"
	"github.com/spotbar/spotbar/internal/ui"
	"github.com/urfave/cli/v3"
)

// Now runs the playback poller alongside the live terminal view. The
// poller keeps running until the view exits.
func (r *Runner) Now(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}

	history, cleanup, err := r.openHistory()
	if err != nil {
		// History is an extra; the live view still works without it.
		r.logger.Warn("play history unavailable", "error", err)
		history = nil
	} else {
		defer cleanup()
	}

	poller := tasks.NewPoller(r.player, r.state, history, r.config.Player.PollInterval(), r.logger)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go poller.Run(pollCtx)

	program := tea.NewProgram(ui.NewNowModel(r.state))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("now view failed: %w", err)
	}
	return nil
}

// History lists recently observed plays, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit, err := strconv.Atoi(cmd.String("limit"))
	if err != nil {
		return fmt.Errorf("%w: limit must be a number, got %q", shared.ErrInvalidArgument, cmd.String("limit"))
	}

	history, cleanup, err := r.openHistory()
	if err != nil {
		return err
	}
	defer cleanup()

	plays, err := history.Recent(limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(plays, true)
	}

	if len(plays) == 0 {
		return r.writePlain("No plays recorded yet\n")
	}

	for _, play := range plays {
		if err := r.writePlain("%s  %s\n", play.PlayedAt.Format("2006-01-02 15:04"), play.Track); err != nil {
			return err
		}
	}
	return nil
}
