// Package services implements the authenticated Spotify Web API client and
// the playback operations built on it.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotbar/spotbar/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// CredentialSource provides usable bearer tokens. A false result means login
// or refresh is required.
type CredentialSource interface {
	AccessToken() (string, bool)
}

// Refresher renews an expired credential once. Implemented by auth.Flow.
type Refresher interface {
	Refresh() error
}

// APIError is a Spotify API rejection after any refresh retry.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API %d: %s", e.Status, e.Body)
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type artist struct {
	Name string `json:"name"`
}

type album struct {
	Images []Image `json:"images"`
}

type playbackItem struct {
	Name       string   `json:"name"`
	Artists    []artist `json:"artists"`
	Album      album    `json:"album"`
	DurationMS int64    `json:"duration_ms"`
	URI        string   `json:"uri"`
}

// display formats the item as "Title - Artist1, Artist2".
func (i *playbackItem) display() string {
	if len(i.Artists) == 0 {
		return i.Name + " - Unknown"
	}
	names := make([]string, len(i.Artists))
	for n, a := range i.Artists {
		names[n] = a.Name
	}
	return i.Name + " - " + strings.Join(names, ", ")
}

type currentlyPlaying struct {
	Item       *playbackItem `json:"item"`
	ProgressMS int64         `json:"progress_ms"`
}

type searchResponse struct {
	Tracks struct {
		Items []playbackItem `json:"items"`
	} `json:"tracks"`
}

// TrackSnapshot is one poll's view of the playing track. Produced fresh on
// every fetch; nil when nothing is playing.
type TrackSnapshot struct {
	DisplayName string
	// Progress is progress_ms / duration_ms. Advisory: upstream values may
	// transiently exceed [0,1] and consumers must tolerate that.
	Progress float64
	// AlbumImageURL is the smallest available album art, or "" when the
	// track has none.
	AlbumImageURL string
}

// repeatModes are the values Spotify accepts for PUT /me/player/repeat.
var repeatModes = map[string]bool{"track": true, "context": true, "off": true}

// SpotifyClient issues authenticated calls against the Spotify Web API,
// transparently refreshing credentials on a 401 and retrying once.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	refresher  Refresher
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyClient creates a client reading tokens from creds and recovering
// from expiry via refresher.
func NewSpotifyClient(creds CredentialSource, refresher Refresher, logger *log.Logger) *SpotifyClient {
	return &SpotifyClient{
		baseURL:    spotifyBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
		refresher:  refresher,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		logger:     logger,
	}
}

// Execute performs one authenticated request against the API.
//
// No usable token fails immediately with ErrNotAuthenticated: when even the
// refresh path has never run, login is required, not refresh. A 401 response
// triggers exactly one refresh and one retry; a second 401 or a failed
// refresh propagates. 204 is success with an empty body.
func (s *SpotifyClient) Execute(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	token, ok := s.creds.AccessToken()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	resp, respBody, err := s.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		s.logger.Info("access token rejected, refreshing")
		if err := s.refresher.Refresh(); err != nil {
			return nil, err
		}

		token, ok = s.creds.AccessToken()
		if !ok {
			return nil, shared.ErrNotAuthenticated
		}

		resp, respBody, err = s.send(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	default:
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
}

// send issues a single bearer-authenticated request and drains the body.
func (s *SpotifyClient) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, []byte, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	respBody := new(bytes.Buffer)
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp, respBody.Bytes(), nil
}

// Play resumes playback on the active device.
func (s *SpotifyClient) Play(ctx context.Context) error {
	_, err := s.Execute(ctx, http.MethodPut, "/me/player/play", nil)
	return err
}

// Pause pauses playback.
func (s *SpotifyClient) Pause(ctx context.Context) error {
	_, err := s.Execute(ctx, http.MethodPut, "/me/player/pause", nil)
	return err
}

// Skip advances to the next track.
func (s *SpotifyClient) Skip(ctx context.Context) error {
	_, err := s.Execute(ctx, http.MethodPost, "/me/player/next", nil)
	return err
}

// Previous returns to the previous track.
func (s *SpotifyClient) Previous(ctx context.Context) error {
	_, err := s.Execute(ctx, http.MethodPost, "/me/player/previous", nil)
	return err
}

// SetVolume sets playback volume. The percentage is validated before any
// network call.
func (s *SpotifyClient) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be 0-100, got %d", shared.ErrInvalidArgument, percent)
	}
	_, err := s.Execute(ctx, http.MethodPut, fmt.Sprintf("/me/player/volume?volume_percent=%d", percent), nil)
	return err
}

// SetRepeat sets the repeat mode: track, context, or off. Unknown modes are
// rejected before any network call.
func (s *SpotifyClient) SetRepeat(ctx context.Context, mode string) error {
	if !repeatModes[mode] {
		return fmt.Errorf("%w: repeat mode must be track, context or off, got %q", shared.ErrInvalidArgument, mode)
	}
	_, err := s.Execute(ctx, http.MethodPut, "/me/player/repeat?state="+mode, nil)
	return err
}

// SearchAndPlay searches for the best single track match and starts playing
// it. Zero results is reported as found=false, not an error, so callers can
// present "no results" rather than a fault.
func (s *SpotifyClient) SearchAndPlay(ctx context.Context, query string) (string, bool, error) {
	path := "/search?q=" + url.QueryEscape(query) + "&type=track&limit=1"
	body, err := s.Execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", false, err
	}
	if len(body) == 0 {
		return "", false, nil
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(result.Tracks.Items) == 0 {
		return "", false, nil
	}

	track := result.Tracks.Items[0]

	playBody, err := json.Marshal(map[string][]string{"uris": {track.URI}})
	if err != nil {
		return "", false, fmt.Errorf("failed to encode play request: %w", err)
	}
	if _, err := s.Execute(ctx, http.MethodPut, "/me/player/play", playBody); err != nil {
		return "", false, err
	}

	return track.display(), true, nil
}

// CurrentTrack fetches the current playback snapshot, or nil when nothing is
// playing. An independent read path: it never touches the published playback
// state.
func (s *SpotifyClient) CurrentTrack(ctx context.Context) (*TrackSnapshot, error) {
	body, err := s.Execute(ctx, http.MethodGet, "/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var playing currentlyPlaying
	if err := json.Unmarshal(body, &playing); err != nil {
		return nil, fmt.Errorf("failed to parse playback response: %w", err)
	}
	if playing.Item == nil {
		return nil, nil
	}

	duration := playing.Item.DurationMS
	if duration < 1 {
		duration = 1
	}

	snapshot := &TrackSnapshot{
		DisplayName: playing.Item.display(),
		Progress:    float64(playing.ProgressMS) / float64(duration),
	}

	// Art is listed largest first; the last entry is the smallest.
	if images := playing.Item.Album.Images; len(images) > 0 {
		snapshot.AlbumImageURL = images[len(images)-1].URL
	}

	return snapshot, nil
}
