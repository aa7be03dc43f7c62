package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oncosaferx/authcore/internal/shared"
)

// maxTokenPermissions bounds the permission snapshot embedded in a token so
// token size stays bounded regardless of role fan-out.
const maxTokenPermissions = 50

// Claims is the signed session token payload. Audience is the tenant; the
// token's own validity window never outlives the session.
type Claims struct {
	jwt.RegisteredClaims
	SessionID   string   `json:"sid"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// BoundTo reports whether the claims were issued for the given session:
// the session id, subject and audience tenant must all match.
func (c *Claims) BoundTo(sess *Session) bool {
	if c.SessionID != sess.ID || c.Subject != sess.UserID {
		return false
	}
	for _, aud := range c.Audience {
		if aud == sess.TenantID {
			return true
		}
	}
	return false
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token bound to the session. Expiry is the sooner of the
// token TTL and the session's own expiry.
func (ti *TokenIssuer) Issue(sess *Session) (string, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)
	if sess.ExpiresAt.Before(exp) {
		exp = sess.ExpiresAt
	}
	perms := sess.Permissions
	if len(perms) > maxTokenPermissions {
		perms = perms[:maxTokenPermissions]
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   sess.UserID,
			Audience:  jwt.ClaimStrings{sess.TenantID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID:   sess.ID,
		Roles:       sess.Roles,
		Permissions: perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Verify parses and validates a token, checking signature and issuer.
func (ti *TokenIssuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithIssuer(ti.issuer), jwt.WithTimeFunc(ti.now))
	if err != nil || !token.Valid {
		return nil, shared.ErrSessionNotFound
	}
	return claims, nil
}
