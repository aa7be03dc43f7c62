package authz

import (
	"log/slog"
	"net/http"

	"github.com/oncosaferx/authcore/internal/observability"
	"github.com/oncosaferx/authcore/internal/shared"
)

// Middleware wires authorization gates for HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// RequirePermission ensures the current principal holds the permission.
// Denials are generic; the response never names the missing permission.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			granted, err := m.Resolver.HasPermission(r.Context(), principal.UserID, principal.TenantID, perm)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require permission", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m.Metrics.ObserveAuthzDecision(granted)
			if !granted {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
