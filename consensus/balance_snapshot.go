package consensus

import "bytes"

// AccountItem is one non-zero-balance account entry in a BalanceSnapshot
// (§3.2). Items are kept strictly ascending by Identifier with no
// duplicates and no zero balances.
type AccountItem struct {
	Identifier     Identifier
	Balance        int64
	BlocksUntilFee uint16
}

// PendingCycleTx is a Cycle-typed transaction awaiting cycle supermajority
// over its voter signature set (§4.2 step 7, version >= 2).
type PendingCycleTx struct {
	TxHash Hash
	Tx     *Transaction
	Votes  []CycleVote
}

// ApprovedCycleTx records a Cycle transaction that has been promoted out of
// PendingCycleTxs after reaching supermajority, retained for a bounded
// window to reject replays (§4.2 step 7, version >= 2).
type ApprovedCycleTx struct {
	TxHash         Hash
	ApprovedHeight uint64
}

// BalanceSnapshot is the post-execution account-balance summary of §3.2.
type BalanceSnapshot struct {
	BlockchainVersion uint16
	BlockHeight       uint64
	RolloverFees      uint8
	PreviousSigners   []Identifier
	Items             []AccountItem

	// UnlockThreshold/UnlockTransferSum are present from version >= 1.
	UnlockThreshold   int64
	UnlockTransferSum int64

	// PendingCycleTxs/RecentlyApprovedCycleTxs are present from version >= 2.
	PendingCycleTxs          []PendingCycleTx
	RecentlyApprovedCycleTxs []ApprovedCycleTx
}

// Balance returns the account balance for id, or (0, false) if the account
// is absent (i.e. has a zero balance).
func (s *BalanceSnapshot) Balance(id Identifier) (int64, bool) {
	i, ok := s.indexOf(id)
	if !ok {
		return 0, false
	}
	return s.Items[i].Balance, true
}

func (s *BalanceSnapshot) indexOf(id Identifier) (int, bool) {
	lo, hi := 0, len(s.Items)
	for lo < hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(s.Items[mid].Identifier[:], id[:]) {
		case 0:
			return mid, true
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// CheckInvariants validates the invariants that must always hold for a
// BalanceSnapshot (§3.2, §8):
//   - Σ balances + rollover_fees = TOTAL_SUPPLY
//   - items strictly ascending by identifier, no duplicates, no zero balances
//   - previous_signers has at most MaxPreviousSigners distinct entries
//   - rollover_fees in 0..=2
func (s *BalanceSnapshot) CheckInvariants() error {
	if s.RolloverFees > 2 {
		return fatalErr(ErrSupplyInvariant, "rollover_fees out of range")
	}
	if len(s.PreviousSigners) > MaxPreviousSigners {
		return fatalErr(ErrSupplyInvariant, "too many previous signers")
	}
	seenSigners := make(map[Identifier]struct{}, len(s.PreviousSigners))
	for _, id := range s.PreviousSigners {
		if _, dup := seenSigners[id]; dup {
			return fatalErr(ErrSupplyInvariant, "duplicate previous signer")
		}
		seenSigners[id] = struct{}{}
	}

	var total int64
	for i, item := range s.Items {
		if item.Balance <= 0 {
			return fatalErr(ErrNegativeBalance, "non-positive balance in items")
		}
		if i > 0 && bytes.Compare(item.Identifier[:], s.Items[i-1].Identifier[:]) <= 0 {
			return fatalErr(ErrSupplyInvariant, "items not strictly ascending")
		}
		total += item.Balance
	}
	total += int64(s.RolloverFees)
	if total != TotalSupply {
		return fatalErr(ErrSupplyInvariant, "total supply invariant violated")
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *BalanceSnapshot) Clone() *BalanceSnapshot {
	out := &BalanceSnapshot{
		BlockchainVersion: s.BlockchainVersion,
		BlockHeight:       s.BlockHeight,
		RolloverFees:      s.RolloverFees,
		UnlockThreshold:   s.UnlockThreshold,
		UnlockTransferSum: s.UnlockTransferSum,
	}
	out.PreviousSigners = append([]Identifier(nil), s.PreviousSigners...)
	out.Items = append([]AccountItem(nil), s.Items...)
	out.PendingCycleTxs = append([]PendingCycleTx(nil), s.PendingCycleTxs...)
	out.RecentlyApprovedCycleTxs = append([]ApprovedCycleTx(nil), s.RecentlyApprovedCycleTxs...)
	return out
}

// Hash returns the double-SHA-256 digest over the canonical byte
// serialisation of s (§3.2, §6.2).
func (s *BalanceSnapshot) Hash() Hash {
	return DoubleSHA256(s.Encode())
}
