package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oncosaferx/authcore/internal/assignment"
	"github.com/oncosaferx/authcore/internal/audit"
	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/observability"
	"github.com/oncosaferx/authcore/internal/session"
	"github.com/oncosaferx/authcore/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *session.Manager
	SessionHandler    *session.Handler
	AssignmentHandler *assignment.Handler
	AuditHandler      *audit.Handler
	AuthzMiddleware   authz.Middleware
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the authorization core.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	secureCookies := params.Config != nil && params.Config.IsProduction()
	sessionMW := session.Middleware(params.SessionManager, secureCookies, params.Logger)

	r.Group(func(r chi.Router) {
		r.Use(AuthRateLimiter())
		r.Use(sessionMW)
		params.SessionHandler.MountRoutes(r)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Use(AuthRateLimiter())
		r.Use(sessionMW)
		params.AssignmentHandler.MountRoutes(r)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(sessionMW)
		r.Use(params.AuthzMiddleware.RequirePermission(shared.PermAuditView))
		params.AuditHandler.MountRoutes(r)
	})

	return r
}
