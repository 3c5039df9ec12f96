package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spotbar/spotbar/internal/shared"
	"github.com/urfave/cli/v3"
)

// Resume resumes playback on the active device.
func (r *Runner) Resume(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.Play(ctx); err != nil {
		return err
	}
	return r.writePlain("▶ Resumed\n")
}

// PlaySearch searches for the best track match and plays it.
func (r *Runner) PlaySearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: usage: spotbar play <query>", shared.ErrMissingArgument)
	}

	if err := r.checkAuth(); err != nil {
		return err
	}

	info, found, err := r.player.SearchAndPlay(ctx, query)
	if err != nil {
		return err
	}
	if !found {
		return r.writePlain("No results for: %s\n", query)
	}
	return r.writePlain("♪ Now playing: %s\n", info)
}

// Pause pauses playback.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.Pause(ctx); err != nil {
		return err
	}
	return r.writePlain("⏸ Paused\n")
}

// Skip advances to the next track.
func (r *Runner) Skip(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.Skip(ctx); err != nil {
		return err
	}
	return r.writePlain("⏭ Skipped\n")
}

// Previous returns to the previous track.
func (r *Runner) Previous(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.Previous(ctx); err != nil {
		return err
	}
	return r.writePlain("⏮ Previous\n")
}

// Loop sets the repeat mode.
func (r *Runner) Loop(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.StringArg("mode")
	if mode == "" {
		return fmt.Errorf("%w: usage: spotbar loop <track|context|off>", shared.ErrMissingArgument)
	}

	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.SetRepeat(ctx, mode); err != nil {
		return err
	}
	return r.writePlain("🔁 Loop → %s\n", mode)
}

// Volume sets the playback volume percentage.
func (r *Runner) Volume(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("percent")
	if raw == "" {
		return fmt.Errorf("%w: usage: spotbar volume <0-100>", shared.ErrMissingArgument)
	}

	percent, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: volume must be a number, got %q", shared.ErrInvalidArgument, raw)
	}

	if err := r.checkAuth(); err != nil {
		return err
	}
	if err := r.player.SetVolume(ctx, percent); err != nil {
		return err
	}
	return r.writePlain("🔊 Volume → %d%%\n", percent)
}

// Current prints the currently playing track without touching the published
// playback state.
func (r *Runner) Current(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkAuth(); err != nil {
		return err
	}

	snapshot, err := r.player.CurrentTrack(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return r.writePlain("Nothing playing\n")
	}
	return r.writePlain("♪ Now Playing: %s\n", snapshot.DisplayName)
}
