package session

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/oncosaferx/authcore/internal/platform/httpx"
	"github.com/oncosaferx/authcore/internal/shared"
)

type sessionContextKey struct{}

// ContextWithSession stores the validated session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext extracts the validated session from context.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// RequestContextFrom derives the fingerprint signals from an HTTP request.
// middleware.RealIP has already normalized RemoteAddr when behind a proxy.
func RequestContextFrom(r *http.Request) RequestContext {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return RequestContext{
		IP:             ip,
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
	}
}

// Middleware validates the session carried by cookie or bearer token,
// refreshes it, and installs the session and principal in the request
// context. Requests without a resolvable session are rejected.
func Middleware(manager *Manager, secureCookies bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, claims := sessionIDFromRequest(r, manager)
			if sessionID == "" {
				httpx.RespondError(w, shared.ErrSessionNotFound)
				return
			}

			sess, err := manager.ValidateAndRefresh(r.Context(), sessionID, RequestContextFrom(r))
			if err != nil {
				if logger != nil {
					logger.Warn("session validation failed", slog.Any("error", err))
				}
				http.SetCookie(w, ExpiredCookie(secureCookies))
				httpx.RespondError(w, err)
				return
			}

			// A bearer token must be bound to the session it names: the
			// audience tenant and subject have to match what is stored.
			if claims != nil && !claims.BoundTo(sess) {
				if logger != nil {
					logger.Warn("token not bound to session", slog.String("session_id", sess.ID))
				}
				httpx.RespondError(w, shared.ErrSessionNotFound)
				return
			}

			// Rolling refresh keeps the cookie lifetime aligned with the
			// idle timeout.
			http.SetCookie(w, NewCookie(sess.ID, secureCookies, manager.IdleTimeout()))

			ctx := ContextWithSession(r.Context(), sess)
			ctx = shared.ContextWithPrincipal(ctx, shared.Principal{
				UserID:    sess.UserID,
				TenantID:  sess.TenantID,
				SessionID: sess.ID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionIDFromRequest resolves the session id from the cookie or a bearer
// token. Claims are non-nil only on the token path.
func sessionIDFromRequest(r *http.Request, manager *Manager) (string, *Claims) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", nil
	}
	claims, err := manager.tokens.Verify(strings.TrimPrefix(raw, "Bearer "))
	if err != nil {
		return "", nil
	}
	return claims.SessionID, claims
}
