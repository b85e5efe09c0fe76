package consensus

// Block is the candidate/frozen block record of §3.3.
type Block struct {
	Version               uint16
	Height                uint64
	PreviousBlockHash     Hash
	StartTimestamp        int64
	VerificationTimestamp int64
	Transactions          []*Transaction
	BalanceListHash       Hash
	SignerID              Identifier
	SignerSignature       Signature
}

// Hash returns the block's identity hash: doubleSHA256(signer_signature)
// (§3.3 "Signature determines identity; two blocks are identical iff their
// signatures are").
func (b *Block) Hash() Hash {
	return DoubleSHA256(b.SignerSignature[:])
}

// Sign computes the signer signature over b's SigningBytes and stores it.
func (b *Block) Sign(scheme SignatureScheme, secret []byte) error {
	sig, err := scheme.Sign(b.SigningBytes(), secret)
	if err != nil {
		return err
	}
	b.SignerSignature = sig
	return nil
}

// VerifySignature reports whether b.SignerSignature verifies over
// b.SigningBytes() under b.SignerID.
func (b *Block) VerifySignature(scheme SignatureScheme) bool {
	if scheme == nil {
		return false
	}
	return scheme.Verify(b.SignerSignature, b.SigningBytes(), b.SignerID)
}

// ValidateTimeWindow enforces §3.3's height time window: start_timestamp
// must equal start_timestamp(height), and verification_timestamp must fall
// in [start_timestamp, start_timestamp + openEdgeSlackMs].
func (b *Block) ValidateTimeWindow(genesisStart int64, openEdgeSlackMs int64) error {
	want := StartTimestamp(genesisStart, b.Height)
	if b.StartTimestamp != want {
		return invalidErr(ErrTimestamp, "start_timestamp does not match height")
	}
	if b.VerificationTimestamp < b.StartTimestamp || b.VerificationTimestamp > b.StartTimestamp+openEdgeSlackMs {
		return invalidErr(ErrTimestamp, "verification_timestamp outside open edge slack")
	}
	return nil
}
