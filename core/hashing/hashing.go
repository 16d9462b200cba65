package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashBytes returns the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString returns the SHA-256 hex digest of a string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashRecord returns the SHA-256 hex digest of the canonical JSON
// encoding of v. For struct values the encoding is deterministic
// (field order is declaration order), so the same logical record
// always produces the same digest across process restarts.
func HashRecord(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record for hashing: %w", err)
	}
	return HashBytes(data), nil
}
