package consensus

// fakeScheme is a deterministic, non-cryptographic SignatureScheme used only
// in tests: Sign concatenates the body's double hash with the secret's
// double hash, Verify recomputes the same value. It exists so tests do not depend on the
// crypto package, keeping consensus import-free of it.
type fakeScheme struct{}

func (fakeScheme) Sign(body []byte, secret []byte) (Signature, error) {
	bh := DoubleSHA256(body)
	sh := DoubleSHA256(secret)
	var sig Signature
	for i := 0; i < 32; i++ {
		sig[i] = bh[i]
		sig[i+32] = sh[i]
	}
	return sig, nil
}

func (fakeScheme) Verify(sig Signature, body []byte, id Identifier) bool {
	want, _ := fakeScheme{}.Sign(body, id[:])
	return want == sig
}

func idFromByte(b byte) Identifier {
	var id Identifier
	id[31] = b
	return id
}

func signTx(tx *Transaction, secret []byte) {
	sig, _ := fakeScheme{}.Sign(tx.SigningBody(), secret)
	tx.Signature = sig
}
