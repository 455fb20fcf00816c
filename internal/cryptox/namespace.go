// Package cryptox derives on-disk names that must not reveal the user they
// belong to.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// UserNamespace returns a stable 32-character hex name for userID: the first
// 16 bytes of its BLAKE2b-256 digest. Equal ids map to equal names.
func UserNamespace(userID string) string {
	sum := blake2b.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}
