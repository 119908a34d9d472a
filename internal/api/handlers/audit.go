package handlers

import (
	"context"
	"net/http"

	"github.com/matiasleandrokruk/opsagent/internal/domain/audit"
	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
)

// AuditReader is satisfied by *audit.Service.
type AuditReader interface {
	List(ctx context.Context, limit, offset int) (audit.Page, error)
	CountByOutcome(ctx context.Context, personaName string) (map[completion.Outcome]int, error)
}

// AuditHandler exposes the completion audit trail.
type AuditHandler struct {
	reader AuditReader
}

func NewAuditHandler(reader AuditReader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

// List handles GET /api/v1/audit?limit=&offset=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	result, err := h.reader.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/v1/audit/stats?persona=.
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("persona")

	counts, err := h.reader.CountByOutcome(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count audit events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"persona": name, "outcomes": counts})
}
