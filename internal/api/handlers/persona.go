package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
)

// CompletionService is satisfied by *completion.Service.
type CompletionService interface {
	Personas() []persona.Persona
	Complete(ctx context.Context, name, input string) (persona.Persona, completion.Result, error)
}

// PersonaHandler serves persona listing and completion.
type PersonaHandler struct {
	svc CompletionService
}

func NewPersonaHandler(svc CompletionService) *PersonaHandler {
	return &PersonaHandler{svc: svc}
}

// CompleteRequest is the body of POST /api/v1/personas/{name}/complete.
type CompleteRequest struct {
	Input string `json:"input"`
}

// CompleteResponse mirrors the CLI output: Response is the answer, or the
// prefixed error text when OK is false.
type CompleteResponse struct {
	Persona  string `json:"persona"`
	Response string `json:"response"`
	OK       bool   `json:"ok"`
}

// personaView omits the system prompt.
type personaView struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// List handles GET /api/v1/personas.
func (h *PersonaHandler) List(w http.ResponseWriter, _ *http.Request) {
	ps := h.svc.Personas()
	out := make([]personaView, 0, len(ps))
	for _, p := range ps {
		out = append(out, personaView{
			Name:        p.Name,
			Description: p.Description,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// Complete handles POST /api/v1/personas/{name}/complete.
//
// Response codes:
//   - 200 OK: the call ran; ok=false carries the prefixed error text
//   - 400 Bad Request: invalid JSON
//   - 404 Not Found: unknown persona
func (h *PersonaHandler) Complete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, res, err := h.svc.Complete(r.Context(), name, req.Input)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "completion failed")
		return
	}

	resp := CompleteResponse{Persona: p.Name, Response: res.Text, OK: res.OK()}
	if !res.OK() {
		resp.Response = p.FormatError(res.Err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}
