package ws

import (
	"log/slog"
	"net/http"
	"slices"
)

// NewCheckOrigin returns a CheckOrigin function for the upgrader. A nil allow list accepts
// every origin. Requests without an Origin header (non-browser clients) are always accepted.
func NewCheckOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == nil {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, origin) {
			return true
		}
		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}
