package server

import (
	"fmt"
	"net/http"
	"sync"
)

// successPage is shown in the user's browser once the code exchange
// completed. Styled after Spotify's green so the outcome is obvious at a
// glance.
const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Login Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Login Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

// ExchangeFunc exchanges a one-time authorization code for tokens. It runs
// inside the callback request so the browser response reflects the outcome.
type ExchangeFunc func(code string) error

// CallbackResult is the terminal outcome of one authorization attempt.
type CallbackResult struct {
	err error
}

func (c CallbackResult) Error() error { return c.err }

// CallbackHandler services exactly one OAuth2 redirect.
//
// It validates the state parameter, runs the code exchange, answers the
// browser, and delivers the outcome through [CallbackHandler.Result]. Replays
// and extra redirects get 400.
type CallbackHandler struct {
	state    string
	exchange ExchangeFunc

	mu      sync.Mutex
	served  bool
	once    sync.Once
	results chan CallbackResult
}

// NewCallbackHandler creates a handler expecting the given state token.
func NewCallbackHandler(state string, exchange ExchangeFunc) *CallbackHandler {
	return &CallbackHandler{
		state:    state,
		exchange: exchange,
		results:  make(chan CallbackResult, 1),
	}
}

// Routes returns the paths this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// Result returns the channel carrying the single authorization outcome.
// The channel receives exactly one value and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.served {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.served = true
	h.mu.Unlock()

	query := r.URL.Query()

	if state := query.Get("state"); state != h.state {
		h.send(CallbackResult{err: fmt.Errorf("state mismatch in callback")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		h.send(CallbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
		http.Error(w, "Authentication failed: "+errParam, http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(CallbackResult{err: fmt.Errorf("no authorization code in callback")})
		http.Error(w, "No authorization code received", http.StatusBadRequest)
		return
	}

	if err := h.exchange(code); err != nil {
		h.send(CallbackResult{err: err})
		http.Error(w, "Failed to complete authentication: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.send(CallbackResult{})

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// send delivers the result exactly once.
func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}
