package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/store"
)

// seedTwoSignerHistory appends one more block directly to s (bypassing
// FrozenChain.Append) signed by a second, distinct identifier, so tests that
// exercise Proof-of-Diversity continuity have the two-member history a
// genuine cycle closure needs instead of tripping the single-genesis-signer
// bootstrap edge (closing a brand-new verifier's first block always reads as
// Discontinuous, same as a literal repeat of the lone genesis signer would).
func seedTwoSignerHistory(t *testing.T, s store.BlockStore, second consensus.Identifier) {
	t.Helper()
	producer, err := NewProducer(s, ProducerConfig{
		Scheme:            fakeScheme{},
		SignerID:          second,
		Secret:            second[:],
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		Now:               func() int64 { return 1_700_000_007_000 },
	})
	require.NoError(t, err)
	cand, err := producer.ProduceNext(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, s.PutBlock(cand.Block.Height, cand.Block, cand.Snapshot, cand.Tracker))
}

func TestFrozenChainAppendValidCandidate(t *testing.T) {
	s, genesisSigner := seedStore(t)
	second := idFromByte(2)
	seedTwoSignerHistory(t, s, second)

	fc, err := OpenFrozenChain(s, FrozenChainConfig{
		Scheme:            fakeScheme{},
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		OpenEdgeSlackMs:   consensus.OpenEdgeSlackMs,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), fc.Height())

	// genesisSigner repeats, closing the [genesisSigner, second] cycle - the
	// minimal sequence Rule B accepts as Continuous.
	producer, err := NewProducer(s, ProducerConfig{
		Scheme:            fakeScheme{},
		SignerID:          genesisSigner,
		Secret:            genesisSigner[:],
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		Now:               func() int64 { return 1_700_000_014_000 },
	})
	require.NoError(t, err)

	cand, err := producer.ProduceNext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, consensus.ContinuityContinuous, cand.Tracker.Continuity)

	snapshot, err := fc.Append(cand.Block)
	require.NoError(t, err)
	require.Equal(t, uint64(2), fc.Height())
	require.Equal(t, cand.Block.Hash(), fc.TipHash())
	require.Equal(t, snapshot.Hash(), cand.Snapshot.Hash())
}

func TestFrozenChainAppendRejectsWrongPreviousHash(t *testing.T) {
	s, _ := seedStore(t)
	fc, err := OpenFrozenChain(s, FrozenChainConfig{
		Scheme:            fakeScheme{},
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		OpenEdgeSlackMs:   consensus.OpenEdgeSlackMs,
	})
	require.NoError(t, err)

	bad := &consensus.Block{
		Height:            1,
		PreviousBlockHash: consensus.Hash{0xFF},
		SignerID:          idFromByte(3),
	}
	_, err = fc.Append(bad)
	require.Error(t, err)
	require.Equal(t, consensus.ErrPreviousHash, consensus.Code(err))
}

// TestFrozenChainAppendRejectsDiscontinuousCycle covers §8 scenario 6: a
// candidate whose derived cycle tracker reads Discontinuous must never be
// frozen, regardless of how it got there.
func TestFrozenChainAppendRejectsDiscontinuousCycle(t *testing.T) {
	s, _ := seedStore(t)
	fc, err := OpenFrozenChain(s, FrozenChainConfig{
		Scheme:            fakeScheme{},
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		OpenEdgeSlackMs:   consensus.OpenEdgeSlackMs,
	})
	require.NoError(t, err)

	// A brand-new second signer immediately after the lone genesis signer
	// violates Rule A (new-verifier spacing): both are new within the same
	// freshly-opened cycle.
	second := idFromByte(2)
	producer, err := NewProducer(s, ProducerConfig{
		Scheme:            fakeScheme{},
		SignerID:          second,
		Secret:            second[:],
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		Now:               func() int64 { return 1_700_000_007_000 },
	})
	require.NoError(t, err)
	cand, err := producer.ProduceNext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, consensus.ContinuityDiscontinuous, cand.Tracker.Continuity)

	_, err = fc.Append(cand.Block)
	require.Error(t, err)
	require.Equal(t, consensus.ErrCycleDiscontinuity, consensus.Code(err))
	require.Equal(t, uint64(0), fc.Height(), "a discontinuous candidate must not advance the frozen tip")
}
