package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/opsagent/internal/api/ctxkeys"
)

// AccessLog writes one structured line per request: action, status, outcome, duration
// and the authenticated client when present. Bodies are never logged.
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"action", actionFromRequest(r.Method, r.URL.Path),
				"status", recorder.statusCode,
				"outcome", outcomeFromStatus(recorder.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			// AuthMiddleware runs inside this one, so the client id is read off the recorder.
			if recorder.clientID != "" {
				attrs = append(attrs, "client_id", recorder.clientID)
			}
			log.InfoContext(r.Context(), "http request", attrs...)
		})
	}
}

// statusRecorder captures the response status. ClientIDCapture fills clientID from
// the inner request context.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	clientID   string
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// ClientIDCapture copies ctxkeys.ClientID onto the enclosing AccessLog recorder.
// Mount it after AuthMiddleware.
func ClientIDCapture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec, ok := w.(*statusRecorder); ok {
			rec.clientID = ctxkeys.String(r.Context(), ctxkeys.ClientID)
		}
		next.ServeHTTP(w, r)
	})
}

func outcomeFromStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "denied"
	default:
		return "error"
	}
}

// actionFromRequest names the request for logs, e.g. "complete_analyze-log".
func actionFromRequest(method, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return strings.ToLower(method) + "_request"
	}

	switch segments[2] {
	case "personas":
		if len(segments) == 5 && segments[4] == "complete" && method == http.MethodPost {
			return "complete_" + segments[3]
		}
		if len(segments) == 3 && method == http.MethodGet {
			return "list_personas"
		}
	case "audit":
		if len(segments) == 4 && segments[3] == "stats" {
			return "audit_stats"
		}
		if len(segments) == 3 {
			return "list_audit"
		}
	}
	return strings.ToLower(method) + "_request"
}
