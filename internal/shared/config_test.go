package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", config.Server.Host)
		}
		if config.Server.Port != 8888 {
			t.Errorf("expected port 8888, got %d", config.Server.Port)
		}
		if config.Database.Path != "spotbar.db" {
			t.Errorf("expected database path spotbar.db, got %s", config.Database.Path)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:8888/callback" {
			t.Errorf("unexpected redirect URI %s", config.Credentials.Spotify.RedirectURI)
		}
		if got := config.Player.PollInterval(); got != 3*time.Second {
			t.Errorf("expected 3s poll interval, got %s", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://127.0.0.1:9999/callback"

[server]
host = "0.0.0.0"
port = 9999

[database]
path = "/custom/path.db"

[player]
poll_interval_seconds = 10
token_path = "/custom/token.json"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", config.Server.Port)
		}
		if got := config.Player.PollInterval(); got != 10*time.Second {
			t.Errorf("expected 10s poll interval, got %s", got)
		}
		if got := config.TokenPath(configPath); got != "/custom/token.json" {
			t.Errorf("expected configured token path, got %s", got)
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config")
		}
	})

	t.Run("LoadConfigInvalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("TokenPathDefault", func(t *testing.T) {
		config := DefaultConfig()
		got := config.TokenPath("/etc/spotbar/config.toml")
		if got != "/etc/spotbar/token.json" {
			t.Errorf("expected token.json beside config, got %s", got)
		}
	})

	t.Run("RedirectURIFallback", func(t *testing.T) {
		config := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 4321}}
		if got := config.RedirectURI(); got != "http://127.0.0.1:4321/callback" {
			t.Errorf("unexpected redirect URI %s", got)
		}
	})
}
