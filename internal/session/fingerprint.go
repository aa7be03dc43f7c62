package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/language"
)

// Fingerprint derives a stable hash from low-entropy request signals. The
// source IP is deliberately excluded: an IP-only change is tolerated drift,
// while a change in any of these signals is treated as suspected hijacking.
func Fingerprint(rc RequestContext) string {
	parts := []string{
		strings.TrimSpace(rc.UserAgent),
		normalizeLanguage(rc.AcceptLanguage),
		normalizeEncoding(rc.AcceptEncoding),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// normalizeLanguage canonicalizes the Accept-Language header down to its
// preferred tags so cosmetic q-value reordering by the same client does not
// change the fingerprint.
func normalizeLanguage(header string) string {
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return strings.ToLower(strings.TrimSpace(header))
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return strings.Join(out, ",")
}

func normalizeEncoding(header string) string {
	fields := strings.Split(header, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(strings.SplitN(f, ";", 2)[0]))
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, ",")
}
