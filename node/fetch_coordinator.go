package node

import "sync"

// FetchCoordinatorConfig bounds how aggressively missing-block requests are
// issued (§5 "request-missing phase", C11).
type FetchCoordinatorConfig struct {
	// BatchLimit is the largest span requested in one MissingRequest.
	BatchLimit uint32
}

// FetchCoordinator tracks the gap between a chain's frozen tip and the
// highest height it has observed evidence of (via candidates or peer vote
// traffic), and decides when and what to request. Adapted from the
// teacher's SyncEngine, which played the analogous bookkeeping role for
// IBD/header-sync state in a fork-choice chain.
type FetchCoordinator struct {
	cfg FetchCoordinatorConfig

	mu              sync.Mutex
	bestKnownHeight uint64
}

func NewFetchCoordinator(cfg FetchCoordinatorConfig) *FetchCoordinator {
	if cfg.BatchLimit == 0 {
		cfg.BatchLimit = 512
	}
	return &FetchCoordinator{cfg: cfg}
}

// RecordBestKnownHeight records that height is known to exist somewhere on
// the network (e.g. observed in a vote or candidate), raising the
// coordinator's notion of how far behind the local frozen tip may be.
func (f *FetchCoordinator) RecordBestKnownHeight(height uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if height > f.bestKnownHeight {
		f.bestKnownHeight = height
	}
}

// BestKnownHeight returns the highest height RecordBestKnownHeight has seen.
func (f *FetchCoordinator) BestKnownHeight() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bestKnownHeight
}

// NextRequest returns the MissingRequest to issue given the current frozen
// tip height, or ok=false if the tip is already caught up to the best known
// height.
func (f *FetchCoordinator) NextRequest(frozenHeight uint64) (MissingRequest, bool) {
	f.mu.Lock()
	best := f.bestKnownHeight
	limit := f.cfg.BatchLimit
	f.mu.Unlock()

	if frozenHeight >= best {
		return MissingRequest{}, false
	}
	return MissingRequest{FromHeight: frozenHeight + 1, Limit: limit}, true
}

// IsCaughtUp reports whether the frozen tip has reached the best known
// height, i.e. there is nothing left to fetch.
func (f *FetchCoordinator) IsCaughtUp(frozenHeight uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return frozenHeight >= f.bestKnownHeight
}
