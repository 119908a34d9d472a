package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/matiasleandrokruk/opsagent/internal/version"
)

// HealthChecker is satisfied by llm.LLMProvider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const readyTimeout = 5 * time.Second

// Health handles GET /health. It never touches the model backend.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready by probing the model backend.
func Ready(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := checker.HealthCheck(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "model backend unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// Version handles GET /version.
func Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"build_time": version.BuildTime,
	})
}
