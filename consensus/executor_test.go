package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func genesisSnapshotHeldBy(id Identifier) *BalanceSnapshot {
	return &BalanceSnapshot{
		Items: []AccountItem{{Identifier: id, Balance: TotalSupply, BlocksUntilFee: 0}},
	}
}

func TestExecutePreservesSupplyInvariant(t *testing.T) {
	a, b, signer := idFromByte(1), idFromByte(2), idFromByte(3)
	parent := genesisSnapshotHeldBy(a)
	parentBlock := &Block{Height: 0}

	tx := &Transaction{Type: TxStandard, Amount: 1000, SenderID: a, ReceiverID: b}
	signTx(tx, a[:])

	next, err := Execute(parent, parentBlock, []*Transaction{tx}, signer, ExecutorParams{Version: 0})
	require.NoError(t, err)
	require.NoError(t, next.CheckInvariants())

	bal, ok := next.Balance(b)
	require.True(t, ok)
	require.Equal(t, int64(998), bal) // 1000 amount minus fee(2)

	signerBal, ok := next.Balance(signer)
	require.True(t, ok)
	require.Equal(t, int64(2), signerBal, "sole previous signer collects the whole fee")

	require.Equal(t, []Identifier{signer}, next.PreviousSigners)
	require.Equal(t, parentBlock.Height+1, next.BlockHeight)
}

func TestExecuteRejectsSenderUnderflowAsFatal(t *testing.T) {
	a, b, signer := idFromByte(1), idFromByte(2), idFromByte(3)
	parent := &BalanceSnapshot{Items: []AccountItem{{Identifier: a, Balance: 10}, {Identifier: idFromByte(200), Balance: TotalSupply - 10}}}
	parentBlock := &Block{Height: 0}

	tx := &Transaction{Type: TxStandard, Amount: 1000, SenderID: a, ReceiverID: b}
	signTx(tx, a[:])

	_, err := Execute(parent, parentBlock, []*Transaction{tx}, signer, ExecutorParams{Version: 0})
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Equal(t, ErrNegativeBalance, Code(err))
}

func TestExecuteDistributesFeesAcrossPreviousSigners(t *testing.T) {
	a, b := idFromByte(1), idFromByte(2)
	s1, s2 := idFromByte(10), idFromByte(11)
	parent := genesisSnapshotHeldBy(a)
	parent.PreviousSigners = []Identifier{s1}
	parentBlock := &Block{Height: 5}

	tx := &Transaction{Type: TxStandard, Amount: 400, SenderID: a, ReceiverID: b}
	signTx(tx, a[:])

	next, err := Execute(parent, parentBlock, []*Transaction{tx}, s2, ExecutorParams{Version: 0})
	require.NoError(t, err)

	// fee = max(1, 400/400) = 1, split across [s2, s1] -> share 0, remainder 1.
	require.Equal(t, uint8(1), next.RolloverFees)
	_, s1HasBalance := next.Balance(s1)
	require.False(t, s1HasBalance, "zero share leaves no tracked balance")
	require.Equal(t, []Identifier{s2, s1}, next.PreviousSigners)
}

func TestExecuteAppliesAccountMaintenanceFeeAtPeriodBoundary(t *testing.T) {
	a, reserve, signer := idFromByte(1), idFromByte(2), idFromByte(9)
	parent := &BalanceSnapshot{
		Items: []AccountItem{
			{Identifier: a, Balance: FeeThresholdBalance - 1, BlocksUntilFee: 1},
			{Identifier: reserve, Balance: TotalSupply - (FeeThresholdBalance - 1)},
		},
	}
	parentBlock := &Block{Height: 0}

	next, err := Execute(parent, parentBlock, nil, signer, ExecutorParams{Version: 0})
	require.NoError(t, err)

	bal, ok := next.Balance(a)
	require.True(t, ok)
	require.Equal(t, FeeThresholdBalance-2, bal, "account below the fee threshold is charged 1 micro-unit at period boundary")

	signerBal, ok := next.Balance(signer)
	require.True(t, ok)
	require.Equal(t, int64(1), signerBal, "the maintenance fee flows to the block signer like any other fee")
}

func TestExecuteCycleBookkeepingPromotesOnSupermajority(t *testing.T) {
	a, signer := idFromByte(1), idFromByte(9)
	voter1, voter2, voter3 := idFromByte(20), idFromByte(21), idFromByte(22)
	parent := genesisSnapshotHeldBy(a)
	parentBlock := &Block{Height: 0}

	cycleTx := &Transaction{
		Type:       TxCycle,
		Amount:     1,
		SenderID:   a,
		ReceiverID: idFromByte(30),
		CycleSignatures: []CycleVote{
			{Voter: voter1}, {Voter: voter2}, {Voter: voter3},
		},
	}
	signTx(cycleTx, a[:])

	params := ExecutorParams{Version: 2, CycleSupermajority: 3, ApprovedRetentionBlocks: 10}
	next, err := Execute(parent, parentBlock, []*Transaction{cycleTx}, signer, params)
	require.NoError(t, err)
	require.Empty(t, next.PendingCycleTxs, "3 votes meets the configured supermajority of 3")
	require.Len(t, next.RecentlyApprovedCycleTxs, 1)
	require.Equal(t, next.BlockHeight, next.RecentlyApprovedCycleTxs[0].ApprovedHeight)
}

func TestExecuteCycleBookkeepingStaysPendingBelowSupermajority(t *testing.T) {
	a, signer := idFromByte(1), idFromByte(9)
	voter1 := idFromByte(20)
	parent := genesisSnapshotHeldBy(a)
	parentBlock := &Block{Height: 0}

	cycleTx := &Transaction{
		Type:            TxCycle,
		Amount:          1,
		SenderID:        a,
		ReceiverID:      idFromByte(30),
		CycleSignatures: []CycleVote{{Voter: voter1}},
	}
	signTx(cycleTx, a[:])

	params := ExecutorParams{Version: 2, CycleSupermajority: 3, ApprovedRetentionBlocks: 10}
	next, err := Execute(parent, parentBlock, []*Transaction{cycleTx}, signer, params)
	require.NoError(t, err)
	require.Len(t, next.PendingCycleTxs, 1)
	require.Empty(t, next.RecentlyApprovedCycleTxs)
}
