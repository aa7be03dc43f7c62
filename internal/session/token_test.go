package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/oncosaferx/authcore/internal/session"
	"github.com/oncosaferx/authcore/internal/shared"
	_ "github.com/oncosaferx/authcore/testing"
)

func testSession() *session.Session {
	now := time.Now().UTC()
	return &session.Session{
		ID:          "sess-1",
		UserID:      "dr-lee",
		TenantID:    "tenant-a",
		IssuedAt:    now,
		ExpiresAt:   now.Add(8 * time.Hour),
		Roles:       []string{"RESIDENT_PHYSICIAN"},
		Permissions: []string{"patient.view", "clinical.order_entry"},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", "authcore-test", time.Hour)

	token, err := issuer.Issue(testSession())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("expected sid claim, got %q", claims.SessionID)
	}
	if claims.Subject != "dr-lee" {
		t.Fatalf("expected subject, got %q", claims.Subject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "tenant-a" {
		t.Fatalf("expected tenant audience, got %v", claims.Audience)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "RESIDENT_PHYSICIAN" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
}

func TestTokenBinding(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", "authcore-test", time.Hour)

	sess := testSession()
	token, err := issuer.Issue(sess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !claims.BoundTo(sess) {
		t.Fatalf("claims must bind to the session they were issued for")
	}

	otherTenant := *sess
	otherTenant.TenantID = "tenant-b"
	if claims.BoundTo(&otherTenant) {
		t.Fatalf("claims must not bind across tenants")
	}

	otherUser := *sess
	otherUser.UserID = "dr-park"
	if claims.BoundTo(&otherUser) {
		t.Fatalf("claims must not bind to a different subject")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", "authcore-test", time.Hour)
	other := session.NewTokenIssuer("different", "authcore-test", time.Hour)

	token, err := issuer.Issue(testSession())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	a := session.NewTokenIssuer("secret", "authcore-test", time.Hour)
	b := session.NewTokenIssuer("secret", "someone-else", time.Hour)

	token, err := a.Issue(testSession())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Fatalf("expected issuer mismatch rejection, got %v", err)
	}
}

func TestTokenBoundedBySessionExpiry(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", "authcore-test", 24*time.Hour)

	sess := testSession()
	sess.ExpiresAt = time.Now().UTC().Add(time.Minute)

	token, err := issuer.Issue(sess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ExpiresAt.Time.After(sess.ExpiresAt.Add(time.Second)) {
		t.Fatalf("token must not outlive the session: %v > %v", claims.ExpiresAt.Time, sess.ExpiresAt)
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", "authcore-test", time.Hour)
	if _, err := issuer.Verify("not.a.token"); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Fatalf("expected rejection, got %v", err)
	}
}
