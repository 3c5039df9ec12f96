package main

import (
	"context"
	"os"

	"github.com/spotbar/spotbar/internal/auth"
	"github.com/spotbar/spotbar/internal/services"
	"github.com/spotbar/spotbar/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warnf("ignoring unreadable config: %v", err)
		}
	}

	store := auth.NewStore(config.TokenPath(configPath), logger)
	flow := auth.NewFlow(config, store, logger)
	player := services.NewSpotifyClient(store, flow, logger)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  store,
		Flow:   flow,
		Player: player,
		Logger: logger,
	})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:     "spotbar",
		Usage:    "Control Spotify playback from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}
}
