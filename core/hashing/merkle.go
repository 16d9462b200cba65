package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// EmptyRoot is the Merkle root of an empty transaction list: the
// SHA-256 digest of zero bytes.
var EmptyRoot = HashBytes(nil)

// MerkleRoot computes the Merkle root over an ordered list of hex
// digests. Pairs are hashed bottom-up; an odd node at any level is
// paired with itself. The computation is order-sensitive: permuting
// the leaves changes the root.
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return EmptyRoot
	}

	level := make([]string, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := sha256.New()
			h.Write([]byte(level[i]))
			h.Write([]byte(level[i+1]))
			next = append(next, hex.EncodeToString(h.Sum(nil)))
		}
		level = next
	}
	return level[0]
}
