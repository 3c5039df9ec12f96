package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spotbar/spotbar/internal/shared"
	tu "github.com/spotbar/spotbar/internal/testing"
)

// fakeCreds is a scripted CredentialSource and Refresher. Refresh swaps the
// active token the way a real refresh would.
type fakeCreds struct {
	mu         sync.Mutex
	token      string
	ok         bool
	refreshed  int
	refreshErr error
	nextToken  string
}

func (f *fakeCreds) AccessToken() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.ok
}

func (f *fakeCreds) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = f.nextToken
	f.ok = true
	return nil
}

func newTestClient(t *testing.T, creds *fakeCreds, handler http.Handler) (*SpotifyClient, *httptest.Server) {
	t.Helper()
	apiServer := httptest.NewServer(handler)
	t.Cleanup(apiServer.Close)

	client := NewSpotifyClient(creds, creds, shared.NewLogger(nil))
	client.baseURL = apiServer.URL
	return client, apiServer
}

func TestExecute(t *testing.T) {
	t.Run("NotAuthenticated", func(t *testing.T) {
		requests := 0
		client, _ := newTestClient(t, &fakeCreds{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))

		_, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if requests != 0 {
			t.Errorf("expected no network calls, got %d", requests)
		}
	})

	t.Run("RefreshOnceThenRetry", func(t *testing.T) {
		creds := &fakeCreds{token: "stale", ok: true, nextToken: "fresh"}
		requests := []string{}

		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			requests = append(requests, token)
			if token != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))

		body, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("unexpected body: %s", body)
		}
		if creds.refreshed != 1 {
			t.Errorf("expected exactly one refresh, got %d", creds.refreshed)
		}
		if len(requests) != 2 {
			t.Errorf("expected exactly two requests, got %d", len(requests))
		}
	})

	t.Run("SecondUnauthorizedPropagates", func(t *testing.T) {
		creds := &fakeCreds{token: "revoked", ok: true, nextToken: "still-revoked"}
		requests := 0

		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401}}`))
		}))

		_, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", apiErr.Status)
		}
		if creds.refreshed != 1 {
			t.Errorf("expected exactly one refresh, got %d", creds.refreshed)
		}
		if requests != 2 {
			t.Errorf("expected exactly two requests, got %d", requests)
		}
	})

	t.Run("RefreshFailurePropagates", func(t *testing.T) {
		creds := &fakeCreds{token: "stale", ok: true, refreshErr: shared.ErrRefreshFailed}
		requests := 0

		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if requests != 1 {
			t.Errorf("expected one request before the failed refresh, got %d", requests)
		}
	})

	t.Run("NoContent", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		body, err := client.Execute(context.Background(), http.MethodPut, "/me/player/pause", nil)
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		if body != nil {
			t.Errorf("expected nil body for 204, got %q", body)
		}
	})

	t.Run("TransportFailure", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client := NewSpotifyClient(creds, creds, shared.NewLogger(nil))
		client.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		_, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if creds.refreshed != 0 {
			t.Errorf("transport failure must not trigger refresh, got %d", creds.refreshed)
		}
	})

	t.Run("ResponseReadFailure", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client := NewSpotifyClient(creds, creds, shared.NewLogger(nil))
		client.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
			}, nil),
		}

		_, err := client.Execute(context.Background(), http.MethodGet, "/me/player", nil)
		if err == nil {
			t.Fatal("expected error when the response body cannot be read")
		}
		if !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("APIError", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"No active device"}}`))
		}))

		_, err := client.Execute(context.Background(), http.MethodPut, "/me/player/play", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", apiErr.Status)
		}
		if creds.refreshed != 0 {
			t.Errorf("non-401 must not trigger refresh, got %d refreshes", creds.refreshed)
		}
	})
}

func TestPlaybackOperations(t *testing.T) {
	t.Run("VolumeValidatedBeforeNetwork", func(t *testing.T) {
		requests := 0
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusNoContent)
		}))

		for _, percent := range []int{-1, 101} {
			if err := client.SetVolume(context.Background(), percent); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for %d, got %v", percent, err)
			}
		}
		if requests != 0 {
			t.Errorf("invalid volumes must not reach the network, got %d requests", requests)
		}

		if err := client.SetVolume(context.Background(), 50); err != nil {
			t.Errorf("valid volume failed: %v", err)
		}
		if requests != 1 {
			t.Errorf("expected one request, got %d", requests)
		}
	})

	t.Run("RepeatModeValidated", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		gotState := ""
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotState = r.URL.Query().Get("state")
			w.WriteHeader(http.StatusNoContent)
		}))

		if err := client.SetRepeat(context.Background(), "shuffle"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for shuffle, got %v", err)
		}

		if err := client.SetRepeat(context.Background(), "track"); err != nil {
			t.Errorf("valid mode failed: %v", err)
		}
		if gotState != "track" {
			t.Errorf("expected state=track, got %s", gotState)
		}
	})

	t.Run("SearchAndPlay", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		playedURI := ""
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/search":
				if q := r.URL.Query().Get("q"); q != "bohemian rhapsody" {
					t.Errorf("unexpected query: %s", q)
				}
				w.Write([]byte(`{"tracks":{"items":[{"name":"Bohemian Rhapsody","artists":[{"name":"Queen"}],"uri":"spotify:track:xyz"}]}}`))
			case r.URL.Path == "/me/player/play":
				body, _ := io.ReadAll(r.Body)
				playedURI = string(body)
				w.WriteHeader(http.StatusNoContent)
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
		}))

		info, found, err := client.SearchAndPlay(context.Background(), "bohemian rhapsody")
		if err != nil {
			t.Fatalf("search and play failed: %v", err)
		}
		if !found {
			t.Fatal("expected a match")
		}
		if info != "Bohemian Rhapsody - Queen" {
			t.Errorf("unexpected track info: %s", info)
		}
		if playedURI != `{"uris":["spotify:track:xyz"]}` {
			t.Errorf("unexpected play body: %s", playedURI)
		}
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		played := false
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/me/player/play" {
				played = true
			}
			w.Write([]byte(`{"tracks":{"items":[]}}`))
		}))

		info, found, err := client.SearchAndPlay(context.Background(), "xzqwv nonsense")
		if err != nil {
			t.Fatalf("expected no error for empty results, got %v", err)
		}
		if found || info != "" {
			t.Errorf("expected no match, got %q found=%v", info, found)
		}
		if played {
			t.Error("nothing should play when search is empty")
		}
	})
}

func TestCurrentTrack(t *testing.T) {
	t.Run("ParsesSnapshot", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"progress_ms": 60000,
				"item": {
					"name": "Breathe",
					"duration_ms": 240000,
					"artists": [{"name": "Pink Floyd"}],
					"album": {"images": [
						{"url": "https://img/large", "width": 640, "height": 640},
						{"url": "https://img/medium", "width": 300, "height": 300},
						{"url": "https://img/small", "width": 64, "height": 64}
					]}
				}
			}`))
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("current track failed: %v", err)
		}
		if snapshot == nil {
			t.Fatal("expected a snapshot")
		}
		if snapshot.DisplayName != "Breathe - Pink Floyd" {
			t.Errorf("unexpected display name: %s", snapshot.DisplayName)
		}
		if snapshot.Progress != 0.25 {
			t.Errorf("expected progress 0.25, got %f", snapshot.Progress)
		}
		if snapshot.AlbumImageURL != "https://img/small" {
			t.Errorf("expected smallest image, got %s", snapshot.AlbumImageURL)
		}
	})

	t.Run("MultipleArtists", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"progress_ms":0,"item":{"name":"Song","duration_ms":1000,"artists":[{"name":"A"},{"name":"B"}],"album":{"images":[]}}}`))
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("current track failed: %v", err)
		}
		if snapshot.DisplayName != "Song - A, B" {
			t.Errorf("unexpected display name: %s", snapshot.DisplayName)
		}
		if snapshot.AlbumImageURL != "" {
			t.Errorf("expected no album art, got %s", snapshot.AlbumImageURL)
		}
	})

	t.Run("NoArtists", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"progress_ms":0,"item":{"name":"Mystery","duration_ms":1000,"artists":[],"album":{"images":[]}}}`))
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("current track failed: %v", err)
		}
		if snapshot.DisplayName != "Mystery - Unknown" {
			t.Errorf("unexpected display name: %s", snapshot.DisplayName)
		}
	})

	t.Run("NothingPlaying", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("expected no error for 204, got %v", err)
		}
		if snapshot != nil {
			t.Errorf("expected nil snapshot, got %+v", snapshot)
		}
	})

	t.Run("NullItem", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"progress_ms":0,"item":null}`))
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("expected no error for null item, got %v", err)
		}
		if snapshot != nil {
			t.Errorf("expected nil snapshot, got %+v", snapshot)
		}
	})

	t.Run("ZeroDuration", func(t *testing.T) {
		creds := &fakeCreds{token: "good", ok: true}
		client, _ := newTestClient(t, creds, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"progress_ms":500,"item":{"name":"Glitch","duration_ms":0,"artists":[{"name":"X"}],"album":{"images":[]}}}`))
		}))

		snapshot, err := client.CurrentTrack(context.Background())
		if err != nil {
			t.Fatalf("current track failed: %v", err)
		}
		if snapshot.Progress != 500 {
			t.Errorf("expected duration floored at 1ms, got progress %f", snapshot.Progress)
		}
	})
}
