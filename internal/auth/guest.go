package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// MintGuestToken returns a fresh random guest token: a v4 UUID rendered as
// 32 lowercase hex characters. The raw value is handed to the guest once and
// never stored.
func MintGuestToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashGuestToken returns the hex SHA-256 digest persisted in
// event_participants.guest_token. Guest tokens are high-entropy random
// values, so an unsalted digest is enough to make the column useless to
// anyone who reads it.
func HashGuestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
