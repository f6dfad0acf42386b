package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSecretToken hashes the raw secret token using the same strategy as issuance.
// Only the hash is ever used as an index key; the plaintext never leaves the
// tenant-keyed record.
func HashSecretToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
