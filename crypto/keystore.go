package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/ed25519"

	"nyzo.dev/verifier/consensus"
)

// KeyStoreV1 is the on-disk verifier identity format: an Ed25519 private
// key wrapped with AES-256-KW under an operator-supplied key-encryption
// key, adapted from the teacher's PQC keystore to carry a single signature
// suite (§1 Non-goals; see DESIGN.md).
type KeyStoreV1 struct {
	Version      string `json:"version"` // "NZKSv1"
	PubkeyHex    string `json:"pubkey_hex"`
	KeyIDHex     string `json:"key_id_hex"`
	WrapAlg      string `json:"wrap_alg"` // "AES-256-KW"
	WrappedSKHex string `json:"wrapped_sk_hex"`
}

const keystoreVersion = "NZKSv1"
const keystoreWrapAlg = "AES-256-KW"

// ExportWrapped wraps an Ed25519 private key under kek (32 bytes) and
// writes it to path as a KeyStoreV1 JSON document.
func ExportWrapped(path string, priv ed25519.PrivateKey, kek []byte) error {
	if len(priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("keystore: secret key must be %d bytes", ed25519.PrivateKeySize)
	}
	pub := priv.Public().(ed25519.PublicKey)

	wrapped, err := AESKeyWrapRFC3394(kek, priv)
	if err != nil {
		return fmt.Errorf("keystore: wrap: %w", err)
	}

	keyID := sha256.Sum256(pub)
	ks := KeyStoreV1{
		Version:      keystoreVersion,
		PubkeyHex:    hex.EncodeToString(pub),
		KeyIDHex:     hex.EncodeToString(keyID[:]),
		WrapAlg:      keystoreWrapAlg,
		WrappedSKHex: hex.EncodeToString(wrapped),
	}
	b, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o600)
}

// LoadWrapped reads a KeyStoreV1 document from path and unwraps its secret
// key under kek, returning the identifier and usable private key.
func LoadWrapped(path string, kek []byte) (consensus.Identifier, ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-provided key file path.
	if err != nil {
		return consensus.Identifier{}, nil, err
	}
	var ks KeyStoreV1
	if err := json.Unmarshal(raw, &ks); err != nil {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: parse: %w", err)
	}
	if ks.Version != keystoreVersion {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: unsupported version %q", ks.Version)
	}
	if ks.WrapAlg != keystoreWrapAlg {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: unsupported wrap_alg %q", ks.WrapAlg)
	}

	pub, err := hex.DecodeString(ks.PubkeyHex)
	if err != nil {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: pubkey_hex: %w", err)
	}
	wrapped, err := hex.DecodeString(ks.WrappedSKHex)
	if err != nil {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: wrapped_sk_hex: %w", err)
	}

	plain, err := AESKeyUnwrapRFC3394(kek, wrapped)
	if err != nil {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: unwrap: %w", err)
	}
	priv := ed25519.PrivateKey(plain)

	keyID := sha256.Sum256(pub)
	if hex.EncodeToString(keyID[:]) != ks.KeyIDHex {
		return consensus.Identifier{}, nil, fmt.Errorf("keystore: key_id mismatch")
	}

	var id consensus.Identifier
	copy(id[:], pub)
	return id, priv, nil
}
