package consensus

import "sort"

// ExecutorParams carries the version-dependent policy knobs of §4.2 that are
// not themselves part of the balance snapshot: the locked-account set and
// unlock-threshold schedule (version >= 1), and the cycle-transaction
// supermajority/retention policy (version >= 2).
type ExecutorParams struct {
	Version uint16

	// LockedAccounts is the system-known identifier set whose balance at
	// the blockchain epoch exceeded the unlock threshold (§4.2 step 6).
	LockedAccounts map[Identifier]struct{}

	// UnlockThresholdForHeight computes unlock_threshold(height), a
	// monotonically non-decreasing schedule (§4.2 step 6). May be nil when
	// Version < 1.
	UnlockThresholdForHeight func(height uint64) int64

	// CycleSupermajority is the number of distinct voter signatures a
	// pending Cycle transaction needs to be promoted to approved (§4.2
	// step 7). Ignored when Version < 2.
	CycleSupermajority int

	// ApprovedRetentionBlocks bounds how long a promoted Cycle transaction
	// is remembered in RecentlyApprovedCycleTxs before being dropped.
	ApprovedRetentionBlocks uint64
}

// Execute is the pure block executor of §4.2: it derives the next balance
// snapshot from the parent snapshot, parent block, an already-admitted
// transaction set, and the signer producing the new block. It never mutates
// its inputs. All failures are Fatal (§4.2 "Failure semantics"): the caller
// must discard the candidate block.
func Execute(parent *BalanceSnapshot, parentBlock *Block, txs []*Transaction, signerID Identifier, params ExecutorParams) (*BalanceSnapshot, error) {
	balances := make(map[Identifier]int64, len(parent.Items))
	blocksUntilFee := make(map[Identifier]uint16, len(parent.Items))
	carriedOver := make(map[Identifier]struct{}, len(parent.Items))
	for _, item := range parent.Items {
		balances[item.Identifier] = item.Balance
		blocksUntilFee[item.Identifier] = item.BlocksUntilFee
		carriedOver[item.Identifier] = struct{}{}
	}

	totalFees := int64(parent.RolloverFees)
	var unlockTransferSum int64
	if params.Version >= 1 {
		unlockTransferSum = parent.UnlockTransferSum
	}

	// Step 2: apply transactions in order. Cycle/CycleSignature transactions
	// debit their (reserved, tracked) sender account exactly like Standard
	// transactions: the "synthetic cycle account" of §4.2 step 2 is backed
	// by the sender's own tracked balance, the only representation that
	// keeps Σbalances+rollover_fees == TOTAL_SUPPLY an invariant rather than
	// an approximation.
	for _, tx := range txs {
		fee := tx.Fee()
		if tx.Type != TxCoinGeneration {
			newBal, err := subChecked(balances[tx.SenderID], tx.Amount)
			if err != nil {
				return nil, fatalErr(ErrNegativeBalance, "sender balance underflow during execution")
			}
			balances[tx.SenderID] = newBal

			if params.Version >= 1 {
				if _, locked := params.LockedAccounts[tx.SenderID]; locked {
					unlockTransferSum += tx.Amount
				}
			}
		}

		credit := tx.Amount - fee
		balances[tx.ReceiverID] += credit
		blocksUntilFee[tx.ReceiverID] = blocksUntilFeeOrDefault(blocksUntilFee, tx.ReceiverID)

		var err error
		totalFees, err = addChecked(totalFees, fee)
		if err != nil {
			return nil, fatalErr(ErrSupplyInvariant, "fee accumulation overflow")
		}
	}

	if params.Version >= 1 && params.UnlockThresholdForHeight != nil {
		threshold := params.UnlockThresholdForHeight(parentBlock.Height + 1)
		if unlockTransferSum > threshold {
			return nil, fatalErr(ErrSupplyInvariant, "unlock_transfer_sum exceeds threshold")
		}
	}

	// Step 3: periodic account-maintenance fee.
	for id := range carriedOver {
		remaining := blocksUntilFee[id]
		if remaining == 0 {
			remaining = AccountFeePeriod
		}
		remaining--
		if remaining == 0 && balances[id] < FeeThresholdBalance {
			balances[id]--
			totalFees++
			remaining = AccountFeePeriod
		}
		blocksUntilFee[id] = remaining
	}

	// Step 4: distribute total fees across up to MaxPreviousSigners most
	// recent distinct signers, including the producing signer. previousSigners
	// can hold up to MaxPreviousSigners entries, so totalFees % n can run well
	// past 2 once a cycle has more than three signers; the remainder is paid
	// out one extra micro-unit at a time to the first `remainder` signers
	// (in dedupeSignersFirstOccurrence order) so the true leftover is always
	// zero whenever there is at least one signer to pay it to.
	previousSigners := dedupeSignersFirstOccurrence(signerID, parent.PreviousSigners)
	n := int64(len(previousSigners))
	share, remainder := int64(0), totalFees
	if n > 0 {
		share = totalFees / n
		remainder = totalFees % n
	}
	for i, id := range previousSigners {
		extra := int64(0)
		if int64(i) < remainder {
			extra = 1
		}
		balances[id] += share + extra
	}
	rolloverFees := int64(0)
	if n == 0 {
		// No signer history yet (bootstrap): fees have nowhere to go and
		// carry forward as rollover_fees, which genuinely must stay small.
		rolloverFees = remainder
		if rolloverFees > 2 {
			return nil, fatalErr(ErrSupplyInvariant, "fee remainder exceeds rollover bound")
		}
	}

	// Step 5: rebuild items, dropping zero/negative entries.
	items := make([]AccountItem, 0, len(balances))
	for id, bal := range balances {
		if bal < 0 {
			return nil, fatalErr(ErrNegativeBalance, "negative balance after execution")
		}
		if bal == 0 {
			continue
		}
		items = append(items, AccountItem{Identifier: id, Balance: bal, BlocksUntilFee: blocksUntilFee[id]})
	}
	sort.Slice(items, func(i, j int) bool {
		return lessIdentifier(items[i].Identifier, items[j].Identifier)
	})

	next := &BalanceSnapshot{
		BlockchainVersion: params.Version,
		BlockHeight:       parentBlock.Height + 1,
		RolloverFees:      uint8(rolloverFees),
		PreviousSigners:   previousSigners,
		Items:             items,
	}

	if params.Version >= 1 {
		next.UnlockThreshold = parent.UnlockThreshold
		if params.UnlockThresholdForHeight != nil {
			next.UnlockThreshold = params.UnlockThresholdForHeight(next.BlockHeight)
		}
		next.UnlockTransferSum = unlockTransferSum
	}

	if params.Version >= 2 {
		pending, approved, err := advanceCycleTxBookkeeping(parent, txs, next.BlockHeight, params)
		if err != nil {
			return nil, err
		}
		next.PendingCycleTxs = pending
		next.RecentlyApprovedCycleTxs = approved
	}

	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}
	return next, nil
}

// advanceCycleTxBookkeeping implements §4.2 step 7: new Cycle transactions
// in this block's tx set merge into (or create) a pending entry tagged by
// txid; any pending entry whose distinct voter count now meets the cycle
// supermajority is promoted to approved; approved entries older than the
// retention window are dropped.
func advanceCycleTxBookkeeping(parent *BalanceSnapshot, txs []*Transaction, nextHeight uint64, params ExecutorParams) ([]PendingCycleTx, []ApprovedCycleTx, error) {
	pendingByHash := make(map[Hash]*PendingCycleTx, len(parent.PendingCycleTxs))
	for i := range parent.PendingCycleTxs {
		p := parent.PendingCycleTxs[i]
		pendingByHash[p.TxHash] = &p
	}

	for _, tx := range txs {
		if tx.Type != TxCycle && tx.Type != TxCycleSignature {
			continue
		}
		h := DoubleSHA256(tx.Encode())
		entry, ok := pendingByHash[h]
		if !ok {
			entry = &PendingCycleTx{TxHash: h, Tx: tx}
			pendingByHash[h] = entry
		}
		entry.Votes = mergeVotes(entry.Votes, tx.CycleSignatures)
	}

	approved := append([]ApprovedCycleTx(nil), parent.RecentlyApprovedCycleTxs...)
	var pending []PendingCycleTx
	for h, entry := range pendingByHash {
		if len(distinctVoters(entry.Votes)) >= params.CycleSupermajority && params.CycleSupermajority > 0 {
			approved = append(approved, ApprovedCycleTx{TxHash: h, ApprovedHeight: nextHeight})
			continue
		}
		pending = append(pending, *entry)
	}
	sort.Slice(pending, func(i, j int) bool { return lessHash(pending[i].TxHash, pending[j].TxHash) })

	retention := params.ApprovedRetentionBlocks
	kept := approved[:0]
	for _, a := range approved {
		if nextHeight-a.ApprovedHeight <= retention {
			kept = append(kept, a)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return lessHash(kept[i].TxHash, kept[j].TxHash) })
	return pending, kept, nil
}

func mergeVotes(existing []CycleVote, incoming []CycleVote) []CycleVote {
	seen := make(map[Identifier]struct{}, len(existing))
	out := append([]CycleVote(nil), existing...)
	for _, v := range existing {
		seen[v.Voter] = struct{}{}
	}
	for _, v := range incoming {
		if _, dup := seen[v.Voter]; dup {
			continue
		}
		seen[v.Voter] = struct{}{}
		out = append(out, v)
	}
	return out
}

func distinctVoters(votes []CycleVote) map[Identifier]struct{} {
	out := make(map[Identifier]struct{}, len(votes))
	for _, v := range votes {
		out[v.Voter] = struct{}{}
	}
	return out
}

// dedupeSignersFirstOccurrence builds previous_signers' = (V ++ S) deduped
// in first-occurrence order, truncated to MaxPreviousSigners (§4.2 step 4).
func dedupeSignersFirstOccurrence(signerID Identifier, previous []Identifier) []Identifier {
	out := make([]Identifier, 0, MaxPreviousSigners)
	seen := make(map[Identifier]struct{}, MaxPreviousSigners)
	add := func(id Identifier) {
		if len(out) >= MaxPreviousSigners {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(signerID)
	for _, id := range previous {
		add(id)
	}
	return out
}

func blocksUntilFeeOrDefault(m map[Identifier]uint16, id Identifier) uint16 {
	if v, ok := m[id]; ok && v > 0 {
		return v
	}
	return AccountFeePeriod
}

func subChecked(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, invalidErr(ErrInsufficientFunds, "integer underflow")
	}
	return r, nil
}

func addChecked(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, fatalErr(ErrSupplyInvariant, "integer overflow")
	}
	return r, nil
}

func lessIdentifier(a, b Identifier) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func lessHash(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
