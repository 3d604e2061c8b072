package filecrypt

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ContentDigest returns the hex SHA-256 of data
func ContentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest recomputes the digest of data and compares it to the stored
// hex value in constant time. A mismatch is advisory: AEAD already vouches
// for the bytes, so callers report it rather than fail.
func VerifyDigest(data []byte, stored string) bool {
	want, err := hex.DecodeString(strings.ToLower(stored))
	if err != nil || len(want) != sha256.Size {
		return false
	}
	got := sha256.Sum256(data)
	return subtle.ConstantTimeCompare(got[:], want) == 1
}
