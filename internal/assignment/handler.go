package assignment

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/oncosaferx/authcore/internal/platform/httpx"
	"github.com/oncosaferx/authcore/internal/shared"
)

// Handler wires HTTP endpoints for role assignment flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/assignments", h.assign)
	r.Delete("/assignments", h.revoke)
	r.Post("/custom", h.createCustomRole)
}

type assignRequest struct {
	UserID     string     `json:"userId" validate:"required"`
	RoleName   string     `json:"roleName" validate:"required"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Department string     `json:"department,omitempty"`
	Supervisor string     `json:"supervisor,omitempty"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	a, err := h.service.Assign(r.Context(), req.UserID, principal.TenantID, req.RoleName, principal.UserID, AssignOptions{
		ExpiresAt:  req.ExpiresAt,
		Reason:     req.Reason,
		Department: req.Department,
		Supervisor: req.Supervisor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":         a.ID,
		"userId":     a.UserID,
		"tenantId":   a.TenantID,
		"roleName":   a.RoleName,
		"assignedAt": a.AssignedAt,
		"expiresAt":  a.ExpiresAt,
	})
}

type revokeRequest struct {
	UserID   string `json:"userId" validate:"required"`
	RoleName string `json:"roleName" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	var req revokeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	removed, err := h.service.Revoke(r.Context(), req.UserID, principal.TenantID, req.RoleName, principal.UserID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !removed {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func (h *Handler) createCustomRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrSessionNotFound)
		return
	}
	var spec CustomRoleSpec
	if err := httpx.DecodeJSON(r, &spec); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	role, err := h.service.CreateCustomRole(r.Context(), principal.TenantID, spec, principal.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"name":        role.Name,
		"level":       role.Level,
		"inherits":    role.Inherits,
		"permissions": role.Permissions,
		"tenantId":    role.TenantID,
	})
}
