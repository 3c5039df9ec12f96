// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes a starter config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// loginCommand starts the OAuth2 authorization flow.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authenticate with Spotify using OAuth2",
		Action: r.Login,
	}
}

// logoutCommand clears the stored session.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored Spotify session",
		Action: r.Logout,
	}
}

// statusCommand reports the current authentication state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check current authentication state",
		Action: r.Status,
	}
}

func resumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "resume",
		Usage:  "Resume playback",
		Action: r.Resume,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Search for a track and play it",
		ArgsUsage: "<query>",
		Action:    r.PlaySearch,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pause",
		Usage:  "Pause playback",
		Action: r.Pause,
	}
}

func skipCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "skip",
		Usage:  "Skip to the next track",
		Action: r.Skip,
	}
}

func previousCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "previous",
		Usage:  "Return to the previous track",
		Action: r.Previous,
	}
}

func loopCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "loop",
		Usage: "Set repeat mode (track | context | off)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "mode"},
		},
		Action: r.Loop,
	}
}

func volumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "volume",
		Usage: "Set playback volume (0-100)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "percent"},
		},
		Action: r.Volume,
	}
}

func currentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "current",
		Usage:  "Show the currently playing track",
		Action: r.Current,
	}
}

// nowCommand runs the poller with the live progress view.
func nowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "now",
		Aliases: []string{"ui"},
		Usage:   "Live now-playing view with album-colored progress bar",
		Action:  r.Now,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recently observed tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "limit",
				Usage: "Maximum number of plays to list",
				Value: "20",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
