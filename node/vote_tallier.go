package node

import (
	"sync"

	"nyzo.dev/verifier/consensus"
)

// heightVotes is the per-height tally state: which verifier voted for which
// candidate hash, and how many times this height's leading hash has
// flipped (§4.4, §4.7, C10).
type heightVotes struct {
	votesByVoter  map[consensus.Identifier]consensus.Hash
	counts        map[consensus.Hash]int
	leader        consensus.Hash
	hasLeader     bool
	flips         int
	leaderSinceMs int64
}

// VoteTallier tracks, per unfrozen height, which candidate each cycle member
// has voted for, and enforces the vote-flip throttle of §4.7: a verifier may
// not re-point its own vote to a different candidate at the same height more
// than FlipConfirmations times, and not within FlipMinAgeMs of its last
// flip, which bounds how much a late-arriving but higher-scoring candidate
// can thrash an already-converging height.
type VoteTallier struct {
	mu         sync.Mutex
	byHeight   map[uint64]*heightVotes
	retention  uint64
	lowestKept uint64
}

// NewVoteTallier returns a tallier that forgets heights more than
// retention below the highest height it has seen a vote for.
func NewVoteTallier(retention uint64) *VoteTallier {
	if retention == 0 {
		retention = consensus.VoteRetentionBlocks
	}
	return &VoteTallier{
		byHeight:  make(map[uint64]*heightVotes),
		retention: retention,
	}
}

// RecordVote registers that voter casts its vote for candidateHash at
// height, at wall-clock nowMs. It returns false (vote rejected, throttled)
// if voter is attempting to flip its vote away from its current choice
// faster than the flip throttle allows.
func (v *VoteTallier) RecordVote(height uint64, voter consensus.Identifier, candidateHash consensus.Hash, nowMs int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	hv, ok := v.byHeight[height]
	if !ok {
		hv = &heightVotes{
			votesByVoter: make(map[consensus.Identifier]consensus.Hash),
			counts:       make(map[consensus.Hash]int),
		}
		v.byHeight[height] = hv
	}

	prev, hadVote := hv.votesByVoter[voter]
	if hadVote {
		if prev == candidateHash {
			return true
		}
		if hv.flips >= consensus.FlipConfirmations && nowMs-hv.leaderSinceMs < consensus.FlipMinAgeMs {
			return false
		}
		hv.counts[prev]--
		hv.flips++
	}

	hv.votesByVoter[voter] = candidateHash
	hv.counts[candidateHash]++

	if !hv.hasLeader || hv.counts[candidateHash] > hv.counts[hv.leader] {
		hv.leader = candidateHash
		hv.hasLeader = true
		hv.leaderSinceMs = nowMs
	}

	v.evictOld(height)
	return true
}

// Tally returns the current vote count for candidateHash at height.
func (v *VoteTallier) Tally(height uint64, candidateHash consensus.Hash) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	hv, ok := v.byHeight[height]
	if !ok {
		return 0
	}
	return hv.counts[candidateHash]
}

// Leader returns the candidate hash with the most votes at height.
func (v *VoteTallier) Leader(height uint64) (consensus.Hash, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	hv, ok := v.byHeight[height]
	if !ok || !hv.hasLeader {
		return consensus.Hash{}, false
	}
	return hv.leader, true
}

// ReachesSupermajority reports whether candidateHash at height has at least
// FreezeThreshold(cycleSize) votes (§4.4 "Block freezing").
func (v *VoteTallier) ReachesSupermajority(height uint64, candidateHash consensus.Hash, cycleSize int) bool {
	return v.Tally(height, candidateHash) >= consensus.FreezeThreshold(cycleSize)
}

// evictOld drops height tallies older than v.retention below height. Caller
// must hold v.mu.
func (v *VoteTallier) evictOld(height uint64) {
	if height <= v.retention {
		return
	}
	floor := height - v.retention
	if floor <= v.lowestKept {
		return
	}
	for h := range v.byHeight {
		if h < floor {
			delete(v.byHeight, h)
		}
	}
	v.lowestKept = floor
}
