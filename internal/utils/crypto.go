// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// IdempotencyKey derives a stable key from parts. A retried request with the
// same parts reuses the provider-side object.
func IdempotencyKey(parts ...string) string {
	return HashString(strings.Join(parts, "|"))[:32]
}
