package session

import (
	"net/http"
	"time"
)

// CookieName is deliberately non-default; fingerprinting a framework from
// its session cookie name is a reconnaissance shortcut.
const CookieName = "osrx_session"

// NewCookie builds the session cookie with the hardened attribute set.
// Rolling refresh: the manager re-issues the cookie on each validated
// request with a fresh expiry.
func NewCookie(sessionID string, secure bool, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(ttl),
	}
}

// ExpiredCookie clears the session cookie.
func ExpiredCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
