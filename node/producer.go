package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/store"
)

// ProducerConfig carries the policy knobs a Producer needs to assemble and
// sign a candidate block at a given height (§4.7, C11 production phase).
type ProducerConfig struct {
	Scheme   consensus.SignatureScheme
	SignerID consensus.Identifier
	Secret   []byte

	GenesisStartMs    int64
	BlockchainVersion uint16
	ExecutorParams    consensus.ExecutorParams
	MaxTxPerBlock     int

	// Now returns ms-since-epoch; defaults to time.Now().UnixMilli(). Tests
	// inject a fake clock here.
	Now func() int64
}

// Producer assembles, executes, and signs candidate blocks for one verifier
// identity. It is adapted from the teacher's proof-of-work Miner: instead of
// searching a nonce space it waits for its height's start_timestamp to
// arrive and stamps a verification_timestamp within the open edge slack
// (§3.3, §4.7), then hands the admitted transaction set to the pure executor.
type Producer struct {
	store store.BlockStore
	cfg   ProducerConfig
}

func NewProducer(blockStore store.BlockStore, cfg ProducerConfig) (*Producer, error) {
	if blockStore == nil {
		return nil, errors.New("producer: nil block store")
	}
	if cfg.Scheme == nil {
		return nil, errors.New("producer: nil signature scheme")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("producer: empty secret")
	}
	if cfg.GenesisStartMs <= 0 {
		return nil, errors.New("producer: genesis_start_ms must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if cfg.MaxTxPerBlock <= 0 {
		cfg.MaxTxPerBlock = consensus.MaxTxPerBlockDefault
	}
	return &Producer{store: blockStore, cfg: cfg}, nil
}

// Candidate is a produced-but-not-yet-frozen block together with the
// balance snapshot and cycle tracker state it would establish if frozen.
type Candidate struct {
	Block    *consensus.Block
	Snapshot *consensus.BalanceSnapshot
	Tracker  *consensus.CycleTracker
}

// ProduceNext builds a signed candidate extending the current frozen tip,
// drawing admissible transactions from pool. It blocks until the target
// height's start_timestamp has arrived or ctx is cancelled.
func (p *Producer) ProduceNext(ctx context.Context, pool []*consensus.Transaction) (*Candidate, error) {
	tip, err := p.store.FrozenHeight()
	if err != nil {
		return nil, fmt.Errorf("producer: frozen height: %w", err)
	}
	parentBlock, ok, err := p.store.GetBlock(tip)
	if err != nil {
		return nil, fmt.Errorf("producer: get parent block: %w", err)
	}
	if !ok {
		return nil, errors.New("producer: missing parent block at frozen height")
	}
	parentSnapshot, ok, err := p.store.GetSnapshot(tip)
	if err != nil {
		return nil, fmt.Errorf("producer: get parent snapshot: %w", err)
	}
	if !ok {
		return nil, errors.New("producer: missing parent snapshot at frozen height")
	}
	parentTracker, ok, err := p.store.GetCycleTracker(tip)
	if err != nil {
		return nil, fmt.Errorf("producer: get parent cycle tracker: %w", err)
	}
	if !ok {
		parentTracker = consensus.NewGenesisCycleTracker()
	}

	nextHeight := tip + 1
	start := consensus.StartTimestamp(p.cfg.GenesisStartMs, nextHeight)
	if err := p.waitUntil(ctx, start); err != nil {
		return nil, err
	}

	lookup := func(height uint64) (consensus.Hash, bool) {
		h, ok, err := p.store.HashAtHeight(height)
		if err != nil || !ok {
			return consensus.Hash{}, false
		}
		return h, true
	}
	admitted := consensus.Admit(pool, parentSnapshot, consensus.AdmissionParams{
		Height:        nextHeight,
		Version:       p.cfg.BlockchainVersion,
		Scheme:        p.cfg.Scheme,
		Lookup:        lookup,
		MaxTxPerBlock: p.cfg.MaxTxPerBlock,
	})

	verificationTimestamp := p.cfg.Now()
	if verificationTimestamp < start {
		verificationTimestamp = start
	}
	if verificationTimestamp > start+consensus.OpenEdgeSlackMs {
		verificationTimestamp = start + consensus.OpenEdgeSlackMs
	}

	block := &consensus.Block{
		Version:               p.cfg.BlockchainVersion,
		Height:                nextHeight,
		PreviousBlockHash:     parentBlock.Hash(),
		StartTimestamp:        start,
		VerificationTimestamp: verificationTimestamp,
		Transactions:          admitted,
		SignerID:              p.cfg.SignerID,
	}

	executorParams := p.cfg.ExecutorParams
	executorParams.Version = p.cfg.BlockchainVersion
	snapshot, err := consensus.Execute(parentSnapshot, parentBlock, admitted, p.cfg.SignerID, executorParams)
	if err != nil {
		return nil, fmt.Errorf("producer: execute: %w", err)
	}
	block.BalanceListHash = snapshot.Hash()

	if err := block.Sign(p.cfg.Scheme, p.cfg.Secret); err != nil {
		return nil, fmt.Errorf("producer: sign: %w", err)
	}

	tracker := parentTracker.Next(p.cfg.SignerID)

	return &Candidate{Block: block, Snapshot: snapshot, Tracker: tracker}, nil
}

// waitUntil blocks until p.cfg.Now() reaches deadlineMs, or ctx is
// cancelled first. It wakes in short increments rather than one long sleep
// so cancellation is observed promptly.
func (p *Producer) waitUntil(ctx context.Context, deadlineMs int64) error {
	for {
		now := p.cfg.Now()
		if now >= deadlineMs {
			return nil
		}
		wait := time.Duration(deadlineMs-now) * time.Millisecond
		if wait > 250*time.Millisecond {
			wait = 250 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
