package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spotbar/spotbar/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginTimeout bounds how long the login command waits for the user to
// complete the browser authorization.
const loginTimeout = 2 * time.Minute

// Setup writes the starter configuration file.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlain("Fill in your Spotify client_id and client_secret, then run: spotbar login\n")
	return nil
}

// Login runs the OAuth2 authorization-code flow and waits for completion.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	authURL, err := r.flow.Start()
	if err != nil {
		return err
	}

	r.writePlain("→ Opening browser for Spotify login...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
	}
	// Always print the URL: a GUI browser may not exist.
	r.writePlain("If the browser did not open, visit:\n%s\n\n", authURL)
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	select {
	case err := <-r.flow.Done():
		if err != nil {
			return err
		}
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.writePlainln("✓ Logged in to Spotify")
	return nil
}

// Logout wipes the stored session. Idempotent.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	r.store.Clear()
	r.writePlain("✓ Logged out of Spotify\n")
	return nil
}

// Status reports whether a usable session exists.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if r.store.HasSession() {
		return r.writePlain("✓ Connected to Spotify\n")
	}
	return r.writePlain("✗ Not connected. Run 'spotbar login'\n")
}
