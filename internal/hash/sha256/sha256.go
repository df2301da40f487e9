// Package sha256 fingerprints fetched pages so layout changes between runs
// can be spotted in the result store.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements scanner.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data. An empty body has no fingerprint.
func (*Hasher) Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
