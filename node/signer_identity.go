package node

import (
	"golang.org/x/crypto/ed25519"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/crypto"
)

// SignerIdentity bundles a loaded verifier keypair with the signature
// scheme that operates on it, so the rest of node/ never needs to reach
// into the crypto package directly.
type SignerIdentity struct {
	ID     consensus.Identifier
	secret ed25519.PrivateKey
	scheme consensus.SignatureScheme
}

// LoadSignerIdentity unwraps the keystore at path under kek and returns a
// ready-to-use identity.
func LoadSignerIdentity(path string, kek []byte) (*SignerIdentity, error) {
	id, priv, err := crypto.LoadWrapped(path, kek)
	if err != nil {
		return nil, err
	}
	return &SignerIdentity{ID: id, secret: priv, scheme: crypto.Ed25519Scheme{}}, nil
}

// GenerateSignerIdentity creates a fresh keypair and writes it to path,
// wrapped under kek, returning the loaded identity.
func GenerateSignerIdentity(path string, kek []byte) (*SignerIdentity, error) {
	id, priv, err := crypto.GenerateIdentity()
	if err != nil {
		return nil, err
	}
	if err := crypto.ExportWrapped(path, priv, kek); err != nil {
		return nil, err
	}
	return &SignerIdentity{ID: id, secret: priv, scheme: crypto.Ed25519Scheme{}}, nil
}

// Scheme returns the signature scheme bound to this identity.
func (s *SignerIdentity) Scheme() consensus.SignatureScheme {
	return s.scheme
}

// Secret returns the raw secret bytes Sign expects.
func (s *SignerIdentity) Secret() []byte {
	return s.secret
}
