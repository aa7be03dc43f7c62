package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/platform/httpx"
	"github.com/oncosaferx/authcore/internal/shared"
)

// Handler exposes the session control surface. All routes run behind the
// session middleware, so a validated session is always in context.
type Handler struct {
	logger        *slog.Logger
	manager       *Manager
	resolver      *authz.Resolver
	secureCookies bool
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, manager *Manager, resolver *authz.Resolver, secureCookies bool) *Handler {
	return &Handler{logger: logger, manager: manager, resolver: resolver, secureCookies: secureCookies}
}

// MountRoutes registers session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Post("/logout-all", h.logoutAll)
	r.Get("/sessions", h.listSessions)
	r.Delete("/sessions/{id}", h.terminateSession)
}

type sessionView struct {
	ID           string    `json:"id"`
	IssuedAt     time.Time `json:"issuedAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
	AuthMethod   string    `json:"authMethod"`
	Current      bool      `json:"current"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	if err := h.manager.Invalidate(r.Context(), sess.ID, ReasonLogout); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	http.SetCookie(w, ExpiredCookie(h.secureCookies))
	httpx.JSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	terminated, err := h.manager.InvalidateAll(r.Context(), sess.UserID, sess.ID, ReasonLogoutAll)
	if err != nil {
		h.logger.Error("logout all", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"terminated": terminated})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	sessions, err := h.manager.List(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:           s.ID,
			IssuedAt:     s.IssuedAt,
			LastActivity: s.LastActivity,
			ExpiresAt:    s.ExpiresAt,
			AuthMethod:   s.AuthMethod,
			Current:      s.ID == sess.ID,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// terminateSession ends a specific session. Callers may terminate their own
// sessions; terminating another user's session requires session.manage_any.
func (h *Handler) terminateSession(w http.ResponseWriter, r *http.Request) {
	current := FromContext(r.Context())
	if current == nil {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	targetID := chi.URLParam(r, "id")
	target, err := h.manager.Get(r.Context(), targetID)
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if target.UserID != current.UserID {
		granted, err := h.resolver.HasPermission(r.Context(), current.UserID, current.TenantID, shared.PermSessionManageAny)
		if err != nil {
			h.logger.Error("terminate session authz", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !granted || target.TenantID != current.TenantID {
			httpx.RespondError(w, shared.ErrPermissionDenied)
			return
		}
	}
	if err := h.manager.Invalidate(r.Context(), targetID, ReasonTerminated); err != nil {
		h.logger.Error("terminate session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"terminated": true})
}
