// package auth implements the Spotify credential lifecycle: durable token
// storage and the OAuth2 authorization-code and refresh flows.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// expiryBuffer is subtracted from the stored expiry when deciding whether an
// access token is still usable, so calls never race the real expiration.
const expiryBuffer = 5 * time.Minute

// record is the durable credential layout: a single JSON object written
// atomically as a whole. ExpiresAt is milliseconds since the Unix epoch.
type record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// tokenResponse is the token-endpoint payload handed to [Store.Save].
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Store owns the access/refresh token pair and its durable record.
//
// All mutation goes through Store; readers get copies. Safe for concurrent
// use from the poller, the API client, and command handlers.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger

	accessToken  string
	refreshToken string
	expiresAt    time.Time

	now func() time.Time
}

// NewStore creates a Store persisting to path and loads any existing record.
func NewStore(path string, logger *log.Logger) *Store {
	s := &Store{path: path, logger: logger, now: time.Now}
	s.Load()
	return s
}

// Load reads the durable record. A missing or corrupt record yields an empty
// credential, not an error; corruption is only logged.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read token file", "path", s.path, "error", err)
		}
		s.accessToken, s.refreshToken, s.expiresAt = "", "", time.Time{}
		return
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("corrupt token file, starting unauthenticated", "path", s.path, "error", err)
		s.accessToken, s.refreshToken, s.expiresAt = "", "", time.Time{}
		return
	}

	s.accessToken = rec.AccessToken
	s.refreshToken = rec.RefreshToken
	s.expiresAt = time.UnixMilli(rec.ExpiresAt)
}

// Save parses a token-endpoint response and overwrites the credential.
//
// The payload must carry access_token and expires_in. refresh_token is kept
// from the previous save when the response omits it (Spotify omits it on
// refresh). A failed disk write is logged but not fatal: the in-memory
// credential still updates.
func (s *Store) Save(payload []byte) error {
	var resp tokenResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("token response missing access_token")
	}
	if resp.ExpiresIn <= 0 {
		return fmt.Errorf("token response missing expires_in")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		s.refreshToken = resp.RefreshToken
	}
	s.expiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	if err := s.persist(); err != nil {
		s.logger.Error("failed to persist token", "error", err)
	}

	return nil
}

// persist writes the whole record to a temp file and renames it into place,
// so a crash mid-write never leaves a half-written record. Caller holds mu.
func (s *Store) persist() error {
	rec := record{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		ExpiresAt:    s.expiresAt.UnixMilli(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// AccessToken returns the access token only while it is usable, i.e. more
// than the expiry buffer away from expiration. A false result means the
// caller must refresh or re-authenticate.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken == "" {
		return "", false
	}
	if !s.now().Before(s.expiresAt.Add(-expiryBuffer)) {
		return "", false
	}
	return s.accessToken, true
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken, s.refreshToken != ""
}

// HasSession reports whether a usable access token is present.
func (s *Store) HasSession() bool {
	_, ok := s.AccessToken()
	return ok
}

// Clear wipes the in-memory credential and removes the durable record.
// Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove token file", "path", s.path, "error", err)
	}
}
