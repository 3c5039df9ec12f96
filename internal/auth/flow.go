package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotbar/spotbar/internal/server"
	"github.com/spotbar/spotbar/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// shutdownGrace keeps the callback listener alive after the redirect is
	// answered, so the browser response finishes sending.
	shutdownGrace = 2 * time.Second
)

// scopes cover playback control and the now-playing poll.
var scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// FlowState tracks a login attempt through its lifecycle.
type FlowState int

const (
	StateIdle FlowState = iota
	StateAwaitingRedirect
	StateExchanging
	StateCompleted
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateExchanging:
		return "exchanging"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return ""
	}
}

// Flow drives the one-time OAuth2 authorization-code exchange and, at any
// later point, token refreshes.
//
// Start is rejected while a previous attempt is still in flight: two
// listeners on the callback port must never be attempted.
type Flow struct {
	mu    sync.Mutex
	state FlowState
	done  chan error

	store      *Store
	oauth      *oauth2.Config
	tokenURL   string
	listenAddr string
	httpClient *http.Client
	grace      time.Duration
	logger     *log.Logger
}

// NewFlow creates a Flow for the configured Spotify app and callback listener.
func NewFlow(conf *shared.Config, store *Store, logger *log.Logger) *Flow {
	creds := conf.Credentials.Spotify

	return &Flow{
		state: StateIdle,
		store: store,
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  conf.RedirectURI(),
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		tokenURL:   spotifyTokenURL,
		listenAddr: fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		grace:      shutdownGrace,
		logger:     logger,
	}
}

// State returns the current flow state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done returns the channel carrying the outcome of the attempt started by
// the last successful [Flow.Start]. Nil before any attempt.
func (f *Flow) Done() <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Start begins a login attempt: binds the loopback callback listener and
// returns the authorization URL for the user to open.
//
// Callers must always surface the URL as text; a GUI browser may not exist.
// A second Start while a redirect is pending fails with ErrAuthInProgress.
func (f *Flow) Start() (string, error) {
	f.mu.Lock()

	if f.state == StateAwaitingRedirect || f.state == StateExchanging {
		f.mu.Unlock()
		return "", shared.ErrAuthInProgress
	}
	if f.oauth.ClientID == "" || f.oauth.ClientSecret == "" {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	state := shared.GenerateID()
	handler := server.NewCallbackHandler(state, f.exchangeCode)
	router := server.NewRouter()
	router.Use(server.RequestLogger(f.logger))
	router.Handler(handler)

	listener, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		f.mu.Unlock()
		return "", fmt.Errorf("failed to bind callback listener on %s: %w", f.listenAddr, err)
	}

	httpServer := &http.Server{Handler: router}
	f.state = StateAwaitingRedirect
	f.done = make(chan error, 1)
	done := f.done
	f.mu.Unlock()

	f.logger.Info("callback listener started", "addr", f.listenAddr)

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			f.logger.Warn("callback listener error", "error", err)
		}
	}()
	go f.await(handler, httpServer, done)

	return f.oauth.AuthCodeURL(state), nil
}

// await collects the single callback outcome, settles the state machine, and
// tears the listener down after the grace delay.
func (f *Flow) await(handler *server.CallbackHandler, httpServer *http.Server, done chan error) {
	result := <-handler.Result()

	f.mu.Lock()
	if result.Error() != nil {
		f.state = StateFailed
	} else {
		f.state = StateCompleted
	}
	f.mu.Unlock()

	if err := result.Error(); err != nil {
		f.logger.Warn("authorization failed", "error", err)
		done <- err
	} else {
		f.logger.Info("authorization completed")
		done <- nil
	}

	time.Sleep(f.grace)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		f.logger.Warn("error stopping callback listener", "error", err)
	}
	f.logger.Info("callback listener stopped")
}

// exchangeCode trades the one-time authorization code for tokens. Runs
// inside the callback request.
func (f *Flow) exchangeCode(code string) error {
	f.mu.Lock()
	f.state = StateExchanging
	f.mu.Unlock()

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {f.oauth.RedirectURL},
	}

	body, status, err := f.postToken(form)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %d: %s", shared.ErrAuthFailed, status, body)
	}

	if err := f.store.Save(body); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return nil
}

// Refresh obtains a new access token with the stored refresh token.
//
// Independent of the Start state machine: usable whenever a refresh token
// exists. Performs no retry itself; the caller decides.
func (f *Flow) Refresh() error {
	refreshToken, ok := f.store.RefreshToken()
	if !ok {
		return shared.ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	body, status, err := f.postToken(form)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %d: %s", shared.ErrRefreshFailed, status, body)
	}

	if err := f.store.Save(body); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	f.logger.Info("access token refreshed")
	return nil
}

// postToken sends a form-encoded request to the token endpoint with the
// client credentials as HTTP Basic auth.
func (f *Flow) postToken(form url.Values) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(f.oauth.ClientID, f.oauth.ClientSecret)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read token response: %w", err)
	}

	return body, resp.StatusCode, nil
}
