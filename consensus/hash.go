package consensus

import "crypto/sha256"

// Hash is the 32-byte double-SHA-256 digest used throughout the module (§3).
type Hash [32]byte

// IsZero reports whether h is the all-zero hash, used as the parent hash of
// the Genesis block.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// DoubleSHA256 computes hash(x) = sha256(sha256(x)) (§3).
func DoubleSHA256(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}
