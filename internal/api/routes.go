// Route registration: public routes (/health, /version, /auth/token) and
// JWT-protected routes under /api/v1.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/opsagent/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/opsagent/internal/api/middleware"
	"github.com/matiasleandrokruk/opsagent/internal/infra/logger"
	pkgauth "github.com/matiasleandrokruk/opsagent/pkg/auth"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Completions handlers.CompletionService
	Health      handlers.HealthChecker
	Signer      *pkgauth.Signer
	// AdminPasswordHash is the bcrypt hash POST /auth/token checks against.
	AdminPasswordHash string
	// Audit is nil when the audit trail is disabled; /api/v1/audit is then not mounted.
	Audit handlers.AuditReader
	Log   *slog.Logger
}

// NewRouter creates the chi router. Deps.Completions, Deps.Health and Deps.Signer are required.
func NewRouter(d Deps) *chi.Mux {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(apmiddleware.AccessLog(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES =====

	r.Get("/health", handlers.Health)
	r.Get("/health/ready", handlers.Ready(d.Health))
	r.Get("/version", handlers.Version)

	authHandler := handlers.NewAuthHandler(d.Signer, d.AdminPasswordHash)
	r.Post("/auth/token", authHandler.Token)

	// ===== PROTECTED ROUTES =====

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware(d.Signer))
		r.Use(apmiddleware.ClientIDCapture)

		personaHandler := handlers.NewPersonaHandler(d.Completions)
		r.Route("/personas", func(r chi.Router) {
			r.Get("/", personaHandler.List)                     // GET /api/v1/personas
			r.Post("/{name}/complete", personaHandler.Complete) // POST /api/v1/personas/{name}/complete
		})

		if d.Audit != nil {
			auditHandler := handlers.NewAuditHandler(d.Audit)
			r.Get("/audit", auditHandler.List)        // GET /api/v1/audit
			r.Get("/audit/stats", auditHandler.Stats) // GET /api/v1/audit/stats
		}
	})

	return r
}
