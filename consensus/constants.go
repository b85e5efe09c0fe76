package consensus

// Fixed network parameters (§1, §3, §4). These are compile-time constants
// because every implementation must agree on them bit-for-bit; nothing here
// is read from configuration.
const (
	MicroUnitsPerUnit int64 = 1_000_000
	TotalSupply       int64 = 1_600_000_000 * MicroUnitsPerUnit

	// MinPreferredBalance is the balance below which a sender is preferred
	// to zero itself out entirely rather than leave dust (§4.3 anti-dust
	// filter).
	MinPreferredBalance int64 = 1

	// FeeThresholdBalance is the balance below which the periodic
	// account-maintenance fee applies (§4.2 step 3).
	FeeThresholdBalance int64 = 10_000 * MicroUnitsPerUnit

	// BlockDurationMs is the canonical inter-block spacing used to derive
	// start_timestamp(height) (§3.3, §6.4).
	BlockDurationMs int64 = 7_000

	// OpenEdgeSlackMs bounds how far past start_timestamp a verification
	// timestamp may fall and still be considered on-time (§3.3).
	OpenEdgeSlackMs int64 = 20_000

	// ProductionDelayMs is the grace period after start_timestamp that
	// MinimumVoteTimestamp adds (§4.7, C11). node.Producer does not wait
	// for it: it produces as soon as start_timestamp has arrived.
	ProductionDelayMs int64 = 2_000

	// AccountFeePeriod is the number of blocks between eligible
	// account-maintenance fee charges (§4.2 step 3).
	AccountFeePeriod uint16 = 500

	// MaxPreviousSigners bounds the previous_signers list carried in a
	// BalanceSnapshot (§3.2, §4.2 step 4).
	MaxPreviousSigners = 9

	// CycleHistoryCount is the number of most-recent closed cycles the
	// cycle tracker retains length history for (§3.4, §4.1).
	CycleHistoryCount = 4

	// VoteRetentionBlocks bounds how many heights below the highest height
	// it has recorded a vote for the vote tallier keeps tallies for; older
	// heights are forgotten (C10).
	VoteRetentionBlocks uint64 = 40

	// FlipConfirmations is the number of consecutive step ticks a new
	// leading candidate must hold the top score before the tallier's vote
	// is allowed to flip to it (C10 "vote-flip-throttle").
	FlipConfirmations = 2

	// FlipMinAgeMs is the minimum time a verifier's current vote must have
	// been held before it is eligible to flip, regardless of confirmation
	// count (C10).
	FlipMinAgeMs int64 = 2_000

	// MaxUnfrozenPerHeight bounds how many distinct candidate blocks the
	// unfrozen store retains per height before evicting the
	// least-preferred (highest ChainScore) entries (C9).
	MaxUnfrozenPerHeight = 10

	// MaxTxPerBlockDefault is the admission filter's default capacity cap
	// per candidate block (§4.3 step 9).
	MaxTxPerBlockDefault = 5_000

	// SeedTxCutoffHeight is the first height at which Seed-typed
	// transactions are no longer admissible (§3.1, §4.3 step 3).
	SeedTxCutoffHeight uint64 = 1_000_000
)

// FreezeThreshold returns the number of votes required to freeze a block
// given the current cycle committee size: a strict supermajority, computed
// as floor(cycleSize/2) + 1 (§3.4, C10).
func FreezeThreshold(cycleSize int) int {
	return cycleSize/2 + 1
}

// ceilDiv computes ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// StartTimestamp computes start_timestamp(height) = genesisStart +
// height*BlockDurationMs (§3.3, §6.4).
func StartTimestamp(genesisStart int64, height uint64) int64 {
	return genesisStart + int64(height)*BlockDurationMs
}
