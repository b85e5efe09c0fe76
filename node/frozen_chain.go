package node

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/store"
)

// FrozenChainConfig carries the policy knobs needed to validate a candidate
// before it is appended to the frozen chain (§4.1, §4.2, §4.4, C8).
type FrozenChainConfig struct {
	Scheme            consensus.SignatureScheme
	GenesisStartMs    int64
	BlockchainVersion uint16
	OpenEdgeSlackMs   int64
	ExecutorParams    consensus.ExecutorParams
}

// tipState is the cached summary of the highest frozen height, held so most
// reads avoid a store round trip (§6.3).
type tipState struct {
	height   uint64
	hash     consensus.Hash
	snapshot *consensus.BalanceSnapshot
	tracker  *consensus.CycleTracker
}

// FrozenChain is the append-only, validated view of the linear frozen chain
// (C8, §4.4 "Block freezing"). It is the only component permitted to call
// BlockStore.PutBlock; every other component reads through it. Adapted from
// the teacher's SyncEngine, which played the analogous role for its
// fork-choice UTXO chain (§9 "no fork choice: chain is linear once frozen").
type FrozenChain struct {
	store  store.BlockStore
	cfg    FrozenChainConfig
	logger zerolog.Logger

	mu  sync.RWMutex
	tip tipState
}

// SetLogger attaches the structured logger FrozenChain reports freeze and
// fatal-rejection events to. Safe to call at any time; defaults to a no-op
// logger so it is never required.
func (c *FrozenChain) SetLogger(logger zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// OpenFrozenChain loads the current tip from blockStore (which must already
// hold at least the Genesis block) and returns a ready-to-use FrozenChain.
func OpenFrozenChain(blockStore store.BlockStore, cfg FrozenChainConfig) (*FrozenChain, error) {
	if blockStore == nil {
		return nil, errors.New("frozen chain: nil block store")
	}
	if cfg.Scheme == nil {
		return nil, errors.New("frozen chain: nil signature scheme")
	}
	height, err := blockStore.FrozenHeight()
	if err != nil {
		return nil, fmt.Errorf("frozen chain: frozen height: %w", err)
	}
	block, ok, err := blockStore.GetBlock(height)
	if err != nil {
		return nil, fmt.Errorf("frozen chain: get tip block: %w", err)
	}
	if !ok {
		return nil, errors.New("frozen chain: store has no Genesis block")
	}
	snapshot, ok, err := blockStore.GetSnapshot(height)
	if err != nil || !ok {
		return nil, fmt.Errorf("frozen chain: get tip snapshot: %w", err)
	}
	tracker, ok, err := blockStore.GetCycleTracker(height)
	if err != nil {
		return nil, fmt.Errorf("frozen chain: get tip tracker: %w", err)
	}
	if !ok {
		tracker = consensus.NewGenesisCycleTracker()
	}

	return &FrozenChain{
		store:  blockStore,
		cfg:    cfg,
		logger: zerolog.Nop(),
		tip: tipState{
			height:   height,
			hash:     block.Hash(),
			snapshot: snapshot,
			tracker:  tracker,
		},
	}, nil
}

// Height returns the current frozen tip height.
func (c *FrozenChain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip.height
}

// TipHash returns the current frozen tip's identity hash.
func (c *FrozenChain) TipHash() consensus.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip.hash
}

// TipSnapshot returns the balance snapshot as of the frozen tip.
func (c *FrozenChain) TipSnapshot() *consensus.BalanceSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip.snapshot
}

// TipTracker returns the cycle tracker state as of the frozen tip.
func (c *FrozenChain) TipTracker() *consensus.CycleTracker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip.tracker
}

// HashAtHeight satisfies consensus.ChainHashLookup by reading through the
// store (§3.1).
func (c *FrozenChain) HashAtHeight(height uint64) (consensus.Hash, bool) {
	h, ok, err := c.store.HashAtHeight(height)
	if err != nil {
		return consensus.Hash{}, false
	}
	return h, ok
}

// Append validates candidate against the current tip and, if it passes,
// executes and persists it as the new frozen tip (§4.2, §4.4). Fatal
// consensus errors (consensus.IsFatal) leave the chain untouched: the
// caller must discard the candidate and try the next one, never crash.
func (c *FrozenChain) Append(candidate *consensus.Block) (*consensus.BalanceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if candidate.Height != c.tip.height+1 {
		return nil, consensusErrf(consensus.KindInvalid, consensus.ErrPreviousHash, "candidate height %d does not extend tip %d", candidate.Height, c.tip.height)
	}
	if candidate.PreviousBlockHash != c.tip.hash {
		return nil, consensusErrf(consensus.KindInvalid, consensus.ErrPreviousHash, "candidate previous_block_hash does not match tip")
	}
	if !candidate.VerifySignature(c.cfg.Scheme) {
		return nil, consensusErrf(consensus.KindInvalid, consensus.ErrSignature, "candidate signature does not verify")
	}
	if err := candidate.ValidateTimeWindow(c.cfg.GenesisStartMs, c.cfg.OpenEdgeSlackMs); err != nil {
		return nil, err
	}

	parentBlock, ok, err := c.store.GetBlock(c.tip.height)
	if err != nil {
		return nil, fmt.Errorf("frozen chain: get parent block: %w", err)
	}
	if !ok {
		return nil, errors.New("frozen chain: tip block vanished from store")
	}

	params := c.cfg.ExecutorParams
	params.Version = c.cfg.BlockchainVersion
	snapshot, err := consensus.Execute(c.tip.snapshot, parentBlock, candidate.Transactions, candidate.SignerID, params)
	if err != nil {
		return nil, err
	}
	if snapshot.Hash() != candidate.BalanceListHash {
		return nil, consensusErrf(consensus.KindFatal, consensus.ErrSnapshotMismatch, "executed snapshot hash does not match candidate's balance_list_hash")
	}

	tracker := c.tip.tracker.Next(candidate.SignerID)
	if tracker.Continuity == consensus.ContinuityDiscontinuous {
		err := consensusErrf(consensus.KindInvalid, consensus.ErrCycleDiscontinuity, "candidate signer %x produces a discontinuous cycle", candidate.SignerID)
		c.logger.Error().Uint64("height", candidate.Height).Str("hash", fmt.Sprintf("%x", candidate.Hash())).
			Str("kind", string(consensus.ErrCycleDiscontinuity)).Msg("candidate rejected: discontinuous cycle")
		return nil, err
	}

	if err := c.store.PutBlock(candidate.Height, candidate, snapshot, tracker); err != nil {
		return nil, fmt.Errorf("frozen chain: put block: %w", err)
	}

	c.tip = tipState{
		height:   candidate.Height,
		hash:     candidate.Hash(),
		snapshot: snapshot,
		tracker:  tracker,
	}
	c.logger.Info().Uint64("height", candidate.Height).Str("hash", fmt.Sprintf("%x", c.tip.hash)).Msg("block frozen")
	return snapshot, nil
}

func consensusErrf(kind consensus.ErrorKind, code consensus.ErrorCode, format string, args ...any) error {
	return &consensus.Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}
