package serialization

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// checksumKey is the metadata key holding the data section digest.
const checksumKey = "sha256"

// ComputeChecksum returns the hex SHA-256 digest of data.
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum compares a computed digest against a stored one.
func ValidateChecksum(computed, stored string) error {
	if subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) != 1 {
		return fmt.Errorf("%w: computed %s, stored %s", ErrChecksumMismatch, computed, stored)
	}
	return nil
}
