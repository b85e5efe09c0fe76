package consensus

import "encoding/binary"

// Encode serializes s to its canonical wire bytes (§6.2):
// version(u16) ‖ block_height(u64) ‖ rollover_fees(u8) ‖
// prev_signers_count(u32) ‖ prev_signer_ids… ‖ items_count(u32) ‖
// (identifier ‖ balance(i64) ‖ blocks_until_fee(u16))* ‖
// [version>=1: unlock_threshold(i64) ‖ unlock_transfer_sum(i64)] ‖
// [version>=2: pending_cycle_txs ‖ recently_approved_cycle_txs].
func (s *BalanceSnapshot) Encode() []byte {
	out := make([]byte, 0, 256)

	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], s.BlockchainVersion)
	out = append(out, tmp2[:]...)

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], s.BlockHeight)
	out = append(out, tmp8[:]...)

	out = append(out, s.RolloverFees)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(s.PreviousSigners)))
	out = append(out, tmp4[:]...)
	for _, id := range s.PreviousSigners {
		out = append(out, id[:]...)
	}

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(s.Items)))
	out = append(out, tmp4[:]...)
	for _, item := range s.Items {
		out = append(out, item.Identifier[:]...)
		binary.BigEndian.PutUint64(tmp8[:], uint64(item.Balance))
		out = append(out, tmp8[:]...)
		binary.BigEndian.PutUint16(tmp2[:], item.BlocksUntilFee)
		out = append(out, tmp2[:]...)
	}

	if s.BlockchainVersion >= 1 {
		binary.BigEndian.PutUint64(tmp8[:], uint64(s.UnlockThreshold))
		out = append(out, tmp8[:]...)
		binary.BigEndian.PutUint64(tmp8[:], uint64(s.UnlockTransferSum))
		out = append(out, tmp8[:]...)
	}

	if s.BlockchainVersion >= 2 {
		binary.BigEndian.PutUint32(tmp4[:], uint32(len(s.PendingCycleTxs)))
		out = append(out, tmp4[:]...)
		for _, p := range s.PendingCycleTxs {
			out = append(out, p.TxHash[:]...)
			txBytes := p.Tx.Encode()
			binary.BigEndian.PutUint32(tmp4[:], uint32(len(txBytes)))
			out = append(out, tmp4[:]...)
			out = append(out, txBytes...)
			binary.BigEndian.PutUint32(tmp4[:], uint32(len(p.Votes)))
			out = append(out, tmp4[:]...)
			for _, v := range p.Votes {
				out = append(out, v.Voter[:]...)
				out = append(out, v.Signature[:]...)
			}
		}

		binary.BigEndian.PutUint32(tmp4[:], uint32(len(s.RecentlyApprovedCycleTxs)))
		out = append(out, tmp4[:]...)
		for _, a := range s.RecentlyApprovedCycleTxs {
			out = append(out, a.TxHash[:]...)
			binary.BigEndian.PutUint64(tmp8[:], a.ApprovedHeight)
			out = append(out, tmp8[:]...)
		}
	}

	return out
}

// DecodeBalanceSnapshot parses a BalanceSnapshot from its canonical bytes.
func DecodeBalanceSnapshot(b []byte) (*BalanceSnapshot, error) {
	const minHeader = 2 + 8 + 1 + 4
	if len(b) < minHeader {
		return nil, invalidErr(ErrParse, "snapshot header truncated")
	}
	s := &BalanceSnapshot{}
	off := 0
	s.BlockchainVersion = binary.BigEndian.Uint16(b[off : off+2])
	off += 2
	s.BlockHeight = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	s.RolloverFees = b[off]
	off++

	prevCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if len(b) < off+int(prevCount)*32+4 {
		return nil, invalidErr(ErrParse, "previous signers truncated")
	}
	s.PreviousSigners = make([]Identifier, prevCount)
	for i := range s.PreviousSigners {
		copy(s.PreviousSigners[i][:], b[off:off+32])
		off += 32
	}

	itemCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	const itemSize = 32 + 8 + 2
	if len(b) < off+int(itemCount)*itemSize {
		return nil, invalidErr(ErrParse, "items truncated")
	}
	s.Items = make([]AccountItem, itemCount)
	for i := range s.Items {
		copy(s.Items[i].Identifier[:], b[off:off+32])
		off += 32
		s.Items[i].Balance = int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
		s.Items[i].BlocksUntilFee = binary.BigEndian.Uint16(b[off : off+2])
		off += 2
	}

	if s.BlockchainVersion >= 1 {
		if len(b) < off+16 {
			return nil, invalidErr(ErrParse, "unlock fields truncated")
		}
		s.UnlockThreshold = int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
		s.UnlockTransferSum = int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
	}

	if s.BlockchainVersion >= 2 {
		if len(b) < off+4 {
			return nil, invalidErr(ErrParse, "pending cycle txs truncated")
		}
		pendingCount := binary.BigEndian.Uint32(b[off : off+4])
		off += 4
		s.PendingCycleTxs = make([]PendingCycleTx, pendingCount)
		for i := range s.PendingCycleTxs {
			if len(b) < off+32+4 {
				return nil, invalidErr(ErrParse, "pending cycle tx truncated")
			}
			copy(s.PendingCycleTxs[i].TxHash[:], b[off:off+32])
			off += 32
			txLen := binary.BigEndian.Uint32(b[off : off+4])
			off += 4
			if len(b) < off+int(txLen) {
				return nil, invalidErr(ErrParse, "pending cycle tx body truncated")
			}
			tx, _, err := DecodeTransaction(b[off : off+int(txLen)])
			if err != nil {
				return nil, err
			}
			s.PendingCycleTxs[i].Tx = tx
			off += int(txLen)

			if len(b) < off+4 {
				return nil, invalidErr(ErrParse, "pending cycle votes truncated")
			}
			voteCount := binary.BigEndian.Uint32(b[off : off+4])
			off += 4
			if len(b) < off+int(voteCount)*96 {
				return nil, invalidErr(ErrParse, "pending cycle votes body truncated")
			}
			s.PendingCycleTxs[i].Votes = make([]CycleVote, voteCount)
			for j := range s.PendingCycleTxs[i].Votes {
				copy(s.PendingCycleTxs[i].Votes[j].Voter[:], b[off:off+32])
				off += 32
				copy(s.PendingCycleTxs[i].Votes[j].Signature[:], b[off:off+64])
				off += 64
			}
		}

		if len(b) < off+4 {
			return nil, invalidErr(ErrParse, "approved cycle txs truncated")
		}
		approvedCount := binary.BigEndian.Uint32(b[off : off+4])
		off += 4
		if len(b) < off+int(approvedCount)*40 {
			return nil, invalidErr(ErrParse, "approved cycle txs body truncated")
		}
		s.RecentlyApprovedCycleTxs = make([]ApprovedCycleTx, approvedCount)
		for i := range s.RecentlyApprovedCycleTxs {
			copy(s.RecentlyApprovedCycleTxs[i].TxHash[:], b[off:off+32])
			off += 32
			s.RecentlyApprovedCycleTxs[i].ApprovedHeight = binary.BigEndian.Uint64(b[off : off+8])
			off += 8
		}
	}

	return s, nil
}
