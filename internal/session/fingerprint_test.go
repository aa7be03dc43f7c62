package session_test

import (
	"testing"

	"github.com/oncosaferx/authcore/internal/session"
	_ "github.com/oncosaferx/authcore/testing"
)

func TestFingerprintIgnoresIP(t *testing.T) {
	a := session.RequestContext{
		IP:             "10.0.0.1",
		UserAgent:      "Mozilla/5.0 Chrome/120.0",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, br",
	}
	b := a
	b.IP = "203.0.113.50"

	if session.Fingerprint(a) != session.Fingerprint(b) {
		t.Fatalf("fingerprint must not depend on the source ip")
	}
}

func TestFingerprintDetectsClientChange(t *testing.T) {
	base := session.RequestContext{
		UserAgent:      "Mozilla/5.0 Chrome/120.0",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, br",
	}

	ua := base
	ua.UserAgent = "Mozilla/5.0 Firefox/121.0"
	if session.Fingerprint(base) == session.Fingerprint(ua) {
		t.Fatalf("user agent change must alter the fingerprint")
	}

	lang := base
	lang.AcceptLanguage = "de-DE,de;q=0.9"
	if session.Fingerprint(base) == session.Fingerprint(lang) {
		t.Fatalf("language change must alter the fingerprint")
	}
}

func TestFingerprintNormalization(t *testing.T) {
	a := session.RequestContext{
		UserAgent:      "Mozilla/5.0 Chrome/120.0",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
	}
	b := a
	// Cosmetic formatting differences in the encoding list do not count.
	b.AcceptEncoding = "GZIP,deflate , br;q=1.0"

	if session.Fingerprint(a) != session.Fingerprint(b) {
		t.Fatalf("encoding formatting must not alter the fingerprint")
	}
}

func TestFingerprintEmptyContext(t *testing.T) {
	if session.Fingerprint(session.RequestContext{}) == "" {
		t.Fatalf("empty context still yields a stable hash")
	}
}
