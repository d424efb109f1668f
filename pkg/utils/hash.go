package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashParts returns a hex SHA-256 over parts joined with a separator that cannot
// appear in column keys.
func HashParts(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
