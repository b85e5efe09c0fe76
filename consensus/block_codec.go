package consensus

import "encoding/binary"

// SigningBytes returns the canonical bytes of every block field except the
// signer signature (§3.3, §6.2): version(u16) ‖ height(u64) ‖
// previous_block_hash(32) ‖ start_ts(i64) ‖ verification_ts(i64) ‖
// txs_count(u32) ‖ txs… ‖ balance_list_hash(32) ‖ signer_id(32).
func (b *Block) SigningBytes() []byte {
	out := make([]byte, 0, 2+8+32+8+8+4+32+32)

	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], b.Version)
	out = append(out, tmp2[:]...)

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], b.Height)
	out = append(out, tmp8[:]...)

	out = append(out, b.PreviousBlockHash[:]...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(b.StartTimestamp))
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], uint64(b.VerificationTimestamp))
	out = append(out, tmp8[:]...)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(b.Transactions)))
	out = append(out, tmp4[:]...)
	for _, tx := range b.Transactions {
		out = append(out, tx.Encode()...)
	}

	out = append(out, b.BalanceListHash[:]...)
	out = append(out, b.SignerID[:]...)
	return out
}

// Encode serializes b for transmission: SigningBytes() followed by the
// 64-byte signer signature (§6.2).
func (b *Block) Encode() []byte {
	return append(b.SigningBytes(), b.SignerSignature[:]...)
}

// DecodeBlock parses a transmitted block (SigningBytes ‖ signer_signature).
func DecodeBlock(raw []byte) (*Block, error) {
	const headerLen = 2 + 8 + 32 + 8 + 8 + 4
	if len(raw) < headerLen {
		return nil, invalidErr(ErrParse, "block header truncated")
	}
	b := &Block{}
	off := 0
	b.Version = binary.BigEndian.Uint16(raw[off : off+2])
	off += 2
	b.Height = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	copy(b.PreviousBlockHash[:], raw[off:off+32])
	off += 32
	b.StartTimestamp = int64(binary.BigEndian.Uint64(raw[off : off+8]))
	off += 8
	b.VerificationTimestamp = int64(binary.BigEndian.Uint64(raw[off : off+8]))
	off += 8

	txCount := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	b.Transactions = make([]*Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		tx, n, err := DecodeTransaction(raw[off:])
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, tx)
		off += n
	}

	if len(raw) < off+32+32+64 {
		return nil, invalidErr(ErrParse, "block trailer truncated")
	}
	copy(b.BalanceListHash[:], raw[off:off+32])
	off += 32
	copy(b.SignerID[:], raw[off:off+32])
	off += 32
	copy(b.SignerSignature[:], raw[off:off+64])
	off += 64
	return b, nil
}
