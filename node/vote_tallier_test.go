package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nyzo.dev/verifier/consensus"
)

func TestVoteTallierBasicMajority(t *testing.T) {
	vt := NewVoteTallier(10)
	h := consensus.Hash{1}
	require.True(t, vt.RecordVote(5, idFromByte(1), h, 1000))
	require.True(t, vt.RecordVote(5, idFromByte(2), h, 1000))
	require.True(t, vt.RecordVote(5, idFromByte(3), h, 1000))

	require.Equal(t, 3, vt.Tally(5, h))
	require.True(t, vt.ReachesSupermajority(5, h, 5))
	require.False(t, vt.ReachesSupermajority(5, h, 11))

	leader, ok := vt.Leader(5)
	require.True(t, ok)
	require.Equal(t, h, leader)
}

func TestVoteTallierThrottlesRapidFlips(t *testing.T) {
	vt := NewVoteTallier(10)
	voter := idFromByte(1)
	a, b := consensus.Hash{1}, consensus.Hash{2}

	require.True(t, vt.RecordVote(5, voter, a, 1000))
	for i := 0; i < consensus.FlipConfirmations; i++ {
		require.True(t, vt.RecordVote(5, voter, b, 1000))
		require.True(t, vt.RecordVote(5, voter, a, 1000))
	}

	require.False(t, vt.RecordVote(5, voter, b, 1000))

	require.True(t, vt.RecordVote(5, voter, b, 1000+consensus.FlipMinAgeMs))
}

func TestVoteTallierSameVoteIsIdempotent(t *testing.T) {
	vt := NewVoteTallier(10)
	voter := idFromByte(1)
	h := consensus.Hash{1}
	require.True(t, vt.RecordVote(5, voter, h, 1000))
	require.True(t, vt.RecordVote(5, voter, h, 2000))
	require.Equal(t, 1, vt.Tally(5, h))
}
