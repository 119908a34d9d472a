package audit

import (
	"time"

	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
)

// Record is one persisted completion_event row.
// Records are append-only; there is no update or delete path.
type Record struct {
	ID          string             `json:"id"`
	Persona     string             `json:"persona"`
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	Outcome     completion.Outcome `json:"outcome"`
	Error       string             `json:"error,omitempty"`
	InputBytes  int                `json:"input_bytes"`
	OutputBytes int                `json:"output_bytes"`
	Tokens      int                `json:"tokens"`
	StopReason  string             `json:"stop_reason,omitempty"`
	DurationMS  int64              `json:"duration_ms"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Page is a slice of records plus the total row count.
type Page struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
