package audit

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher one-way hashes PII fields with a process-wide salt before they are
// persisted. blake2b in keyed mode gives a salted hash without a separate
// HMAC construction.
type Hasher struct {
	salt []byte
}

// NewHasher constructs a Hasher. blake2b rejects keys longer than 64 bytes,
// so longer salts are pre-hashed down.
func NewHasher(salt string) *Hasher {
	key := []byte(salt)
	if len(key) > 64 {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{salt: key}
}

// Hash returns the hex-encoded keyed hash of value, or "" for empty input.
func (h *Hasher) Hash(value string) string {
	if value == "" {
		return ""
	}
	mac, err := blake2b.New256(h.salt)
	if err != nil {
		// Key length is validated in NewHasher; this cannot fail at runtime.
		sum := blake2b.Sum256([]byte(value))
		return hex.EncodeToString(sum[:])
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
