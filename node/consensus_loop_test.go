package node

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"nyzo.dev/verifier/consensus"
)

// loopbackTransport delivers broadcast candidates/votes straight back to the
// same ConsensusLoop instance, modeling a single-verifier cycle where a node always
// sees its own traffic immediately.
type loopbackTransport struct {
	candidates []*consensus.Block
	votes      []VoteMessage
}

func (l *loopbackTransport) BroadcastCandidate(block *consensus.Block) {
	l.candidates = append(l.candidates, block)
}

func (l *loopbackTransport) BroadcastVote(vote VoteMessage) {
	l.votes = append(l.votes, vote)
}

func (l *loopbackTransport) PollCandidates() []*consensus.Block {
	out := l.candidates
	l.candidates = nil
	return out
}

func (l *loopbackTransport) PollVotes() []VoteMessage {
	out := l.votes
	l.votes = nil
	return out
}

// TestLoopStepFreezesSingleVerifierCycle drives one Step() with a single
// self-cast vote reaching a deliberately low injected threshold
// (LoopConfig.CycleSize stubbed at 1), independent of the real committee size
// recorded in the tracker. Height 1 is pre-seeded directly (bypassing the
// loop, the same way Genesis itself is seeded) with a second signer so the
// candidate under test - signerID repeating - closes a genuine two-member
// Proof-of-Diversity cycle instead of tripping the lone-genesis-signer
// bootstrap edge.
func TestLoopStepFreezesSingleVerifierCycle(t *testing.T) {
	s, genesisSigner := seedStore(t)
	second := idFromByte(2)
	seedTwoSignerHistory(t, s, second)

	signerID := genesisSigner
	var tick int64 = 1_700_000_014_000
	now := func() int64 { return tick }

	producerCfg := ProducerConfig{
		Scheme:            fakeScheme{},
		SignerID:          signerID,
		Secret:            signerID[:],
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		Now:               now,
	}
	producer, err := NewProducer(s, producerCfg)
	require.NoError(t, err)

	chain, err := OpenFrozenChain(s, FrozenChainConfig{
		Scheme:            fakeScheme{},
		GenesisStartMs:    1_700_000_000_000,
		BlockchainVersion: 0,
		OpenEdgeSlackMs:   consensus.OpenEdgeSlackMs,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), chain.Height())

	identity := &SignerIdentity{ID: signerID, secret: ed25519.PrivateKey(signerID[:]), scheme: fakeScheme{}}

	loop := NewLoop(
		chain,
		NewUnfrozenStore(0),
		NewVoteTallier(0),
		producer,
		NewFetchCoordinator(FetchCoordinatorConfig{}),
		&loopbackTransport{},
		identity,
		LoopConfig{CycleSize: func() int { return 1 }, Now: now},
	)
	metrics := NewMetrics(prometheus.NewRegistry())
	loop.SetMetrics(metrics)

	loop.Step(context.Background())

	require.Equal(t, uint64(2), chain.Height())
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.BlocksFrozen))

	status := loop.Status()
	require.Equal(t, uint64(2), status.FrozenHeight)
	require.Equal(t, chain.TipHash(), status.FrozenTipHash)
}
