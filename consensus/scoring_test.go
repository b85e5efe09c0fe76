package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainScorePrefersEarlierCyclePosition(t *testing.T) {
	earlier := ChainScore(ScoreInputs{CyclePosition: 5, ArrivalOrder: 0})
	later := ChainScore(ScoreInputs{CyclePosition: 1, ArrivalOrder: 0})
	require.Less(t, earlier, later, "a verifier further from having recently signed must score lower (more preferred)")
}

func TestChainScoreArrivalOrderBreaksTies(t *testing.T) {
	first := ChainScore(ScoreInputs{CyclePosition: 3, ArrivalOrder: 0})
	second := ChainScore(ScoreInputs{CyclePosition: 3, ArrivalOrder: 1})
	require.Less(t, first, second)
}

func TestMinimumVoteTimestampAddsProductionDelay(t *testing.T) {
	genesis := int64(1_700_000_000_000)
	got := MinimumVoteTimestamp(genesis, 10)
	require.Equal(t, StartTimestamp(genesis, 10)+ProductionDelayMs, got)
}
