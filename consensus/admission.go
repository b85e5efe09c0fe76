package consensus

import "sort"

// AdmissionParams carries the policy knobs of §4.3 that are not themselves
// part of a transaction or snapshot.
type AdmissionParams struct {
	Height  uint64
	Version uint16
	Scheme  SignatureScheme
	Lookup  ChainHashLookup

	// MaxTxPerBlock caps the number of admitted transactions (§4.3 step 9).
	// Zero means MaxTxPerBlockDefault.
	MaxTxPerBlock int
}

// Admit implements TxAdmission (C7, §4.3): it takes a candidate transaction
// pool and the balance snapshot it will be applied against, and returns the
// ordered, deduplicated, balance-feasible subset that a block producer may
// include. Admit is pure: same inputs, same output, no I/O.
//
// Steps, in order:
//  1. normalise ordering and drop exact-duplicate transactions (identical
//     encoded bytes);
//  2. drop transactions whose type is not allowed at this height/version;
//  3. drop transactions whose previous_block_hash does not bind to the
//     chain as observed via lookup;
//  4. drop transactions whose signature does not verify;
//  5. simulate balances sequentially in the surviving order, dropping any
//     transaction that would drive its sender negative;
//  6. apply the anti-dust filter;
//  7. cap the result at MaxTxPerBlock, keeping the highest-fee transactions.
//
// Transaction timestamps are not checked against the block's time window,
// and no cycle-source, locked-account or seed-account rules are applied.
func Admit(pool []*Transaction, parent *BalanceSnapshot, params AdmissionParams) []*Transaction {
	limit := params.MaxTxPerBlock
	if limit <= 0 {
		limit = MaxTxPerBlockDefault
	}

	ordered := normaliseAndDedupe(pool)

	survivors := make([]*Transaction, 0, len(ordered))
	for _, tx := range ordered {
		if err := tx.ValidateStatic(params.Height, params.Version, params.Scheme, params.Lookup); err != nil {
			continue
		}
		survivors = append(survivors, tx)
	}

	survivors = simulateBalances(survivors, parent)
	survivors = applyDustFilter(survivors, parent)

	if len(survivors) > limit {
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].Fee() > survivors[j].Fee()
		})
		survivors = survivors[:limit]
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return transactionLess(survivors[i], survivors[j])
	})
	return survivors
}

// normaliseAndDedupe sorts the pool into canonical order (timestamp, then
// hash of the encoded transaction) and drops transactions whose encoded
// bytes duplicate an earlier one (§4.3 step 1).
func normaliseAndDedupe(pool []*Transaction) []*Transaction {
	seen := make(map[Hash]struct{}, len(pool))
	out := make([]*Transaction, 0, len(pool))
	sorted := append([]*Transaction(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool { return transactionLess(sorted[i], sorted[j]) })
	for _, tx := range sorted {
		h := DoubleSHA256(tx.Encode())
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, tx)
	}
	return out
}

func transactionLess(a, b *Transaction) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	ha, hb := DoubleSHA256(a.Encode()), DoubleSHA256(b.Encode())
	return lessHash(ha, hb)
}

// simulateBalances applies candidates in order against a scratch copy of the
// snapshot's balances, dropping any transaction whose sender would go
// negative (§4.3 step 7). A dropped transaction does not block later,
// independent transactions from the same sender that remain affordable.
// Surviving transactions mutate the scratch map exactly as the executor
// would: decrement the sender, then credit the receiver by amount minus fee,
// so a transaction spending funds received earlier in this same pass sees
// them as available.
func simulateBalances(candidates []*Transaction, parent *BalanceSnapshot) []*Transaction {
	balances := make(map[Identifier]int64, len(parent.Items))
	for _, item := range parent.Items {
		balances[item.Identifier] = item.Balance
	}

	out := make([]*Transaction, 0, len(candidates))
	for _, tx := range candidates {
		if tx.Type == TxCoinGeneration {
			balances[tx.ReceiverID] += tx.Amount - tx.Fee()
			out = append(out, tx)
			continue
		}
		bal, ok := balances[tx.SenderID]
		if !ok || bal < tx.Amount {
			continue
		}
		balances[tx.SenderID] = bal - tx.Amount
		balances[tx.ReceiverID] += tx.Amount - tx.Fee()
		out = append(out, tx)
	}
	return out
}

// applyDustFilter drops Standard/Seed transactions that would leave the
// sender with a sub-MinPreferredBalance remainder unless the transaction
// zeroes the sender out entirely (§4.3 step 8).
func applyDustFilter(candidates []*Transaction, parent *BalanceSnapshot) []*Transaction {
	startBalance := make(map[Identifier]int64, len(parent.Items))
	for _, item := range parent.Items {
		startBalance[item.Identifier] = item.Balance
	}
	spent := make(map[Identifier]int64, len(candidates))

	out := make([]*Transaction, 0, len(candidates))
	for _, tx := range candidates {
		if tx.Type != TxStandard && tx.Type != TxSeed {
			out = append(out, tx)
			continue
		}
		bal := startBalance[tx.SenderID] - spent[tx.SenderID]
		remainder := bal - tx.Amount
		if remainder != 0 && remainder < MinPreferredBalance {
			continue
		}
		spent[tx.SenderID] += tx.Amount
		out = append(out, tx)
	}
	return out
}
