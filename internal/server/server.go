// Package server hosts the short-lived loopback HTTP listener that receives
// the OAuth2 authorization redirect.
//
// The listener exists for exactly one login attempt: it serves one redirect
// on /callback, hands the outcome to the auth flow, and is torn down shortly
// after the response is sent. A second redirect is rejected with 400.
package server

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// Middleware wraps an [http.Handler] and returns a new handler with
// additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// RequestLogger logs each request served by the callback listener.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("callback listener request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
