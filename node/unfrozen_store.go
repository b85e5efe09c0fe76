package node

import (
	"sort"
	"sync"

	"nyzo.dev/verifier/consensus"
)

// unfrozenEntry is one candidate block held at a given height, awaiting
// enough votes to freeze (§4.4, C9).
type unfrozenEntry struct {
	block     *consensus.Block
	snapshot  *consensus.BalanceSnapshot
	tracker   *consensus.CycleTracker
	arrivalID uint64
	position  int
}

// UnfrozenStore holds candidate blocks for heights above the frozen tip,
// bounded per height so a flood of competing candidates at one height cannot
// grow memory without limit (§4.4, §9 "bounded per-height candidate set").
// When a height is full, the least-preferred candidate (the highest
// consensus.ChainScore, where lower is better and arrival order breaks ties)
// is evicted to make room for a better one; a new candidate that does not
// score strictly better than that one is dropped instead.
type UnfrozenStore struct {
	maxPerHeight int

	mu       sync.Mutex
	next     uint64
	byHeight map[uint64][]unfrozenEntry
}

// NewUnfrozenStore returns an UnfrozenStore that holds at most maxPerHeight
// candidates per height. A non-positive maxPerHeight falls back to
// consensus.MaxUnfrozenPerHeight.
func NewUnfrozenStore(maxPerHeight int) *UnfrozenStore {
	if maxPerHeight <= 0 {
		maxPerHeight = consensus.MaxUnfrozenPerHeight
	}
	return &UnfrozenStore{
		maxPerHeight: maxPerHeight,
		byHeight:     make(map[uint64][]unfrozenEntry),
	}
}

// Add inserts a candidate for block.Height, scored via consensus.ChainScore
// using cyclePosition. It reports whether the candidate was kept (it may be
// dropped if the height's bucket is already full of better-scoring
// candidates, or if the exact block hash is already present).
func (u *UnfrozenStore) Add(block *consensus.Block, snapshot *consensus.BalanceSnapshot, tracker *consensus.CycleTracker, cyclePosition int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	h := block.Hash()
	bucket := u.byHeight[block.Height]
	for _, e := range bucket {
		if e.block.Hash() == h {
			return false
		}
	}

	arrival := u.next
	u.next++
	entry := unfrozenEntry{block: block, snapshot: snapshot, tracker: tracker, arrivalID: arrival, position: cyclePosition}

	if len(bucket) < u.maxPerHeight {
		bucket = append(bucket, entry)
		u.byHeight[block.Height] = bucket
		return true
	}

	worstIdx, worstScore := -1, int64(0)
	for i, e := range bucket {
		score := consensus.ChainScore(consensus.ScoreInputs{CyclePosition: e.position, ArrivalOrder: int(e.arrivalID)})
		if worstIdx == -1 || score > worstScore {
			worstIdx, worstScore = i, score
		}
	}
	newScore := consensus.ChainScore(consensus.ScoreInputs{CyclePosition: cyclePosition, ArrivalOrder: int(arrival)})
	if worstIdx == -1 || newScore >= worstScore {
		return false
	}
	bucket[worstIdx] = entry
	u.byHeight[block.Height] = bucket
	return true
}

// Candidates returns the held candidates at height, ordered by arrival.
func (u *UnfrozenStore) Candidates(height uint64) []*consensus.Block {
	u.mu.Lock()
	defer u.mu.Unlock()

	bucket := append([]unfrozenEntry(nil), u.byHeight[height]...)
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].arrivalID < bucket[j].arrivalID })
	out := make([]*consensus.Block, len(bucket))
	for i, e := range bucket {
		out[i] = e.block
	}
	return out
}

// Get returns the stored snapshot/tracker for a specific candidate hash at
// height, if still held.
func (u *UnfrozenStore) Get(height uint64, hash consensus.Hash) (*consensus.Block, *consensus.BalanceSnapshot, *consensus.CycleTracker, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range u.byHeight[height] {
		if e.block.Hash() == hash {
			return e.block, e.snapshot, e.tracker, true
		}
	}
	return nil, nil, nil, false
}

// DropBelow discards every candidate at or below height, called once that
// height (or higher) has frozen and its competitors are moot (§4.4).
func (u *UnfrozenStore) DropBelow(height uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for h := range u.byHeight {
		if h <= height {
			delete(u.byHeight, h)
		}
	}
}
