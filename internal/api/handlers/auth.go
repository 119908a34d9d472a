package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	pkgauth "github.com/matiasleandrokruk/opsagent/pkg/auth"
)

// TokenIssuer is satisfied by *auth.Signer.
type TokenIssuer interface {
	Generate(clientID string) (string, error)
	Expiry() time.Duration
}

// AuthHandler issues API tokens against the single admin password hash.
type AuthHandler struct {
	issuer       TokenIssuer
	passwordHash string
}

func NewAuthHandler(issuer TokenIssuer, passwordHash string) *AuthHandler {
	return &AuthHandler{issuer: issuer, passwordHash: passwordHash}
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	ClientID string `json:"client_id"`
	Password string `json:"password"`
}

// TokenResponse is returned on success. ExpiresIn is in seconds.
type TokenResponse struct {
	Token     string `json:"token"`
	ClientID  string `json:"client_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Token handles POST /auth/token.
//
// Response codes:
//   - 200 OK: token issued
//   - 400 Bad Request: invalid JSON or missing fields
//   - 401 Unauthorized: wrong password
//   - 503 Service Unavailable: ADMIN_PASSWORD_HASH not configured
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.passwordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "token issuing is not configured")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateTokenRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !pkgauth.VerifyPassword(h.passwordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.issuer.Generate(req.ClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ClientID:  req.ClientID,
		ExpiresIn: int64(h.issuer.Expiry().Seconds()),
	})
}

func validateTokenRequest(req TokenRequest) error {
	if req.ClientID == "" {
		return errors.New("client_id is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
