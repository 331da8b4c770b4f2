package bot

import (
	"io"
	"net/http"
)

// HealthResponse is the body served by the liveness endpoint.
const HealthResponse = "Bot is running"

// NewHealthHandler returns the liveness endpoint for external uptime probes.
func NewHealthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, HealthResponse)
	})
	return mux
}
