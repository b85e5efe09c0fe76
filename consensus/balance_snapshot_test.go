package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func singleAccountSnapshot(balance int64, rollover uint8) *BalanceSnapshot {
	return &BalanceSnapshot{
		Items: []AccountItem{
			{Identifier: idFromByte(1), Balance: balance, BlocksUntilFee: AccountFeePeriod},
		},
		RolloverFees: rollover,
	}
}

func TestBalanceSnapshotCheckInvariantsHappyPath(t *testing.T) {
	s := singleAccountSnapshot(TotalSupply-2, 2)
	require.NoError(t, s.CheckInvariants())
}

func TestBalanceSnapshotCheckInvariantsSupplyMismatch(t *testing.T) {
	s := singleAccountSnapshot(TotalSupply, 0)
	s.Items[0].Balance = TotalSupply - 1 // leaves 1 micro-unit unaccounted
	err := s.CheckInvariants()
	require.Error(t, err)
	require.Equal(t, ErrSupplyInvariant, Code(err))
}

func TestBalanceSnapshotCheckInvariantsRejectsNonAscendingItems(t *testing.T) {
	s := &BalanceSnapshot{
		RolloverFees: 0,
		Items: []AccountItem{
			{Identifier: idFromByte(2), Balance: 1},
			{Identifier: idFromByte(1), Balance: TotalSupply - 1},
		},
	}
	err := s.CheckInvariants()
	require.Error(t, err)
	require.Equal(t, ErrSupplyInvariant, Code(err))
}

func TestBalanceSnapshotCheckInvariantsRejectsZeroBalance(t *testing.T) {
	s := &BalanceSnapshot{
		RolloverFees: 0,
		Items: []AccountItem{
			{Identifier: idFromByte(1), Balance: 0},
		},
	}
	err := s.CheckInvariants()
	require.Error(t, err)
	require.Equal(t, ErrNegativeBalance, Code(err))
}

func TestBalanceSnapshotCheckInvariantsRejectsTooManyRolloverFees(t *testing.T) {
	s := singleAccountSnapshot(TotalSupply-3, 3)
	err := s.CheckInvariants()
	require.Error(t, err)
	require.Equal(t, ErrSupplyInvariant, Code(err))
}

func TestBalanceSnapshotBalanceLookup(t *testing.T) {
	s := &BalanceSnapshot{
		Items: []AccountItem{
			{Identifier: idFromByte(1), Balance: 10},
			{Identifier: idFromByte(5), Balance: 20},
			{Identifier: idFromByte(9), Balance: 30},
		},
	}
	bal, ok := s.Balance(idFromByte(5))
	require.True(t, ok)
	require.Equal(t, int64(20), bal)

	_, ok = s.Balance(idFromByte(6))
	require.False(t, ok)
}

func TestBalanceSnapshotCloneIsDeep(t *testing.T) {
	s := singleAccountSnapshot(100, 0)
	clone := s.Clone()
	clone.Items[0].Balance = 999
	require.Equal(t, int64(100), s.Items[0].Balance, "mutating clone must not affect original")
}

func TestBalanceSnapshotEncodeDecodeRoundTrip(t *testing.T) {
	s := &BalanceSnapshot{
		BlockchainVersion: 2,
		BlockHeight:       5,
		RolloverFees:      1,
		PreviousSigners:   []Identifier{idFromByte(1), idFromByte(2)},
		Items: []AccountItem{
			{Identifier: idFromByte(1), Balance: 10, BlocksUntilFee: 5},
		},
		UnlockThreshold:   1000,
		UnlockTransferSum: 10,
		PendingCycleTxs: []PendingCycleTx{
			{
				TxHash: DoubleSHA256([]byte("tx")),
				Tx:     &Transaction{Type: TxCycle, ReceiverID: idFromByte(3)},
				Votes:  []CycleVote{{Voter: idFromByte(4), Signature: Signature{9}}},
			},
		},
		RecentlyApprovedCycleTxs: []ApprovedCycleTx{
			{TxHash: DoubleSHA256([]byte("approved")), ApprovedHeight: 4},
		},
	}

	decoded, err := DecodeBalanceSnapshot(s.Encode())
	require.NoError(t, err)
	require.Equal(t, s.BlockchainVersion, decoded.BlockchainVersion)
	require.Equal(t, s.BlockHeight, decoded.BlockHeight)
	require.Equal(t, s.RolloverFees, decoded.RolloverFees)
	require.Equal(t, s.PreviousSigners, decoded.PreviousSigners)
	require.Equal(t, s.Items, decoded.Items)
	require.Equal(t, s.UnlockThreshold, decoded.UnlockThreshold)
	require.Equal(t, s.UnlockTransferSum, decoded.UnlockTransferSum)
	require.Len(t, decoded.PendingCycleTxs, 1)
	require.Equal(t, s.PendingCycleTxs[0].TxHash, decoded.PendingCycleTxs[0].TxHash)
	require.Equal(t, s.RecentlyApprovedCycleTxs, decoded.RecentlyApprovedCycleTxs)
}
