package store

import "nyzo.dev/verifier/consensus"

// BlockStore is the durable-storage contract of C12 (§6.3): everything above
// it (FrozenChain, the consensus loop, the CLI) depends only on this
// interface, never on a concrete backend. Writes must be crash-durable
// before returning; implementations that buffer in memory must still
// survive process restart for every call that already returned nil.
type BlockStore interface {
	// PutBlock persists a frozen block at its height, along with the
	// balance snapshot and cycle tracker state produced by executing it.
	PutBlock(height uint64, block *consensus.Block, snapshot *consensus.BalanceSnapshot, tracker *consensus.CycleTracker) error

	// GetBlock returns the frozen block at height, or ok=false if none is
	// stored yet.
	GetBlock(height uint64) (*consensus.Block, bool, error)

	// GetSnapshot returns the balance snapshot as of height.
	GetSnapshot(height uint64) (*consensus.BalanceSnapshot, bool, error)

	// GetCycleTracker returns the cycle tracker state as of height.
	GetCycleTracker(height uint64) (*consensus.CycleTracker, bool, error)

	// HashAtHeight returns the stored block's identity hash at height,
	// used to satisfy consensus.ChainHashLookup for transaction admission
	// (§3.1).
	HashAtHeight(height uint64) (consensus.Hash, bool, error)

	// FrozenHeight returns the highest height with a persisted block.
	FrozenHeight() (uint64, error)

	// Close releases any underlying resources.
	Close() error
}
