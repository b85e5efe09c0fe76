package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ed25519"

	"nyzo.dev/verifier/consensus"
)

// Ed25519Scheme implements consensus.SignatureScheme using Ed25519. It is
// the module's only signature suite: the PQC suite selection the teacher
// carried (ML-DSA-87, SLH-DSA SHAKE-256f) is out of scope here (§1
// Non-goals; see DESIGN.md).
type Ed25519Scheme struct{}

func (Ed25519Scheme) Sign(body []byte, secret []byte) (consensus.Signature, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return consensus.Signature{}, fmt.Errorf("ed25519: secret must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}
	sig := ed25519.Sign(ed25519.PrivateKey(secret), body)
	var out consensus.Signature
	copy(out[:], sig)
	return out, nil
}

func (Ed25519Scheme) Verify(sig consensus.Signature, body []byte, id consensus.Identifier) bool {
	return ed25519.Verify(ed25519.PublicKey(id[:]), body, sig[:])
}

// GenerateIdentity creates a fresh Ed25519 keypair: the public half becomes
// a consensus.Identifier, the private half is the secret passed to Sign.
func GenerateIdentity() (consensus.Identifier, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return consensus.Identifier{}, nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	var id consensus.Identifier
	copy(id[:], pub)
	return id, priv, nil
}
