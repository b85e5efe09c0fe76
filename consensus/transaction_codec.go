package consensus

import "encoding/binary"

// Encode serializes tx to its canonical wire bytes (§6.2): all integers
// big-endian, all variable-length fields u32-count- or u32-length-prefixed.
// Layout: type(u8) ‖ timestamp(i64) ‖ amount(i64) ‖ receiver_id(32) ‖
// sender_id(32) ‖ sender_data_len(u32) ‖ sender_data ‖
// previous_hash_height(u64) ‖ previous_block_hash(32) ‖ signature(64) ‖
// cycle_votes_count(u32) ‖ (voter(32) ‖ signature(64))*.
func (tx *Transaction) Encode() []byte {
	out := make([]byte, 0, 1+8+8+32+32+4+len(tx.SenderData)+8+32+64+4+len(tx.CycleSignatures)*96)
	out = append(out, byte(tx.Type))

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], uint64(tx.Timestamp))
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], uint64(tx.Amount))
	out = append(out, tmp8[:]...)

	out = append(out, tx.ReceiverID[:]...)
	out = append(out, tx.SenderID[:]...)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(tx.SenderData)))
	out = append(out, tmp4[:]...)
	out = append(out, tx.SenderData...)

	binary.BigEndian.PutUint64(tmp8[:], tx.PreviousHashHeight)
	out = append(out, tmp8[:]...)
	out = append(out, tx.PreviousBlockHash[:]...)
	out = append(out, tx.Signature[:]...)

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(tx.CycleSignatures)))
	out = append(out, tmp4[:]...)
	for _, v := range tx.CycleSignatures {
		out = append(out, v.Voter[:]...)
		out = append(out, v.Signature[:]...)
	}
	return out
}

// DecodeTransaction parses a Transaction from its canonical wire bytes,
// returning the number of bytes consumed.
func DecodeTransaction(b []byte) (*Transaction, int, error) {
	const fixedHeader = 1 + 8 + 8 + 32 + 32 + 4
	if len(b) < fixedHeader {
		return nil, 0, invalidErr(ErrParse, "transaction header truncated")
	}
	off := 0
	tx := &Transaction{}
	tx.Type = TxType(b[off])
	off++
	tx.Timestamp = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	tx.Amount = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	copy(tx.ReceiverID[:], b[off:off+32])
	off += 32
	copy(tx.SenderID[:], b[off:off+32])
	off += 32

	senderDataLen := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if senderDataLen > 32 {
		return nil, 0, invalidErr(ErrSenderData, "sender_data exceeds 32 bytes")
	}
	if len(b) < off+int(senderDataLen)+8+32+64+4 {
		return nil, 0, invalidErr(ErrParse, "transaction body truncated")
	}
	tx.SenderData = append([]byte(nil), b[off:off+int(senderDataLen)]...)
	off += int(senderDataLen)

	tx.PreviousHashHeight = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	copy(tx.PreviousBlockHash[:], b[off:off+32])
	off += 32
	copy(tx.Signature[:], b[off:off+64])
	off += 64

	voteCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if len(b) < off+int(voteCount)*96 {
		return nil, 0, invalidErr(ErrParse, "cycle votes truncated")
	}
	if voteCount > 0 {
		tx.CycleSignatures = make([]CycleVote, voteCount)
		for i := range tx.CycleSignatures {
			copy(tx.CycleSignatures[i].Voter[:], b[off:off+32])
			off += 32
			copy(tx.CycleSignatures[i].Signature[:], b[off:off+64])
			off += 64
		}
	}
	return tx, off, nil
}
