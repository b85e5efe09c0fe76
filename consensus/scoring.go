package consensus

// ScoreInputs is the evidence chain_score is derived from (§4.7): a
// candidate block's signer position within the cycle that signed it, and
// the candidate's arrival order relative to its siblings at the same height.
type ScoreInputs struct {
	// CyclePosition is the signer's index, counting back from the most
	// recent, within the cycle that produced the parent snapshot
	// (0 = most recently used). A verifier earlier in the cycle (larger
	// CyclePosition) is preferred, matching Proof-of-Diversity's intent of
	// spreading production across the full committee.
	CyclePosition int

	// ArrivalOrder is the candidate's 0-based rank among same-height
	// candidates by first-observed time; lower is better.
	ArrivalOrder int
}

// ChainScore computes the relative preference ordering used by the vote
// tallier to pick among same-height candidates (§4.7): blocks signed by
// verifiers further from having recently signed score lower (more
// preferred), with arrival order breaking ties. Lower is better.
func ChainScore(in ScoreInputs) int64 {
	const arrivalWeight = 1_000_000
	return int64(-in.CyclePosition)*arrivalWeight + int64(in.ArrivalOrder)
}

// MinimumVoteTimestamp computes the earliest wall-clock time (ms since
// epoch) at which a verifier may cast its first vote for the block at the
// given height, per §4.7: the height's start_timestamp plus the
// production-delay grace period that gives the highest-scoring candidate
// time to arrive before a verifier commits to a lower-scoring one it
// produced itself.
func MinimumVoteTimestamp(genesisStart int64, height uint64) int64 {
	return StartTimestamp(genesisStart, height) + ProductionDelayMs
}
