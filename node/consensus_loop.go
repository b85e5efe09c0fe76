package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nyzo.dev/verifier/consensus"
)

// Transport is the gossip boundary the consensus loop drives: broadcasting
// locally produced candidates and votes, and delivering what was received
// from peers since the last poll. A concrete implementation wires this to
// whatever networking stack the deployment uses; tests use an in-memory
// loopback.
type Transport interface {
	BroadcastCandidate(block *consensus.Block)
	BroadcastVote(vote VoteMessage)
	PollCandidates() []*consensus.Block
	PollVotes() []VoteMessage
}

// LoopConfig carries the fixed-step timing and policy knobs of the
// consensus loop (§5, C11): a single cooperative task driving production,
// voting, freezing, and missing-block requests.
type LoopConfig struct {
	StepInterval time.Duration
	CycleSize    func() int
	Now          func() int64
}

// ConsensusLoop is the single cooperative task of C11: each step it (1) asks
// the Producer for a candidate at the next height, with no check of the
// cycle order for whose turn it is, (2) casts its own vote for the candidate
// it just produced; candidates received from peers are stored but never
// voted for, (3) freezes that height if a candidate has reached
// supermajority, and (4) counts a missing-block request in the metrics if it
// has fallen behind; the request is not sent anywhere. It never blocks on
// network I/O; Transport.Poll* must be non-blocking.
type ConsensusLoop struct {
	chain     *FrozenChain
	unfrozen  *UnfrozenStore
	votes     *VoteTallier
	producer  *Producer
	fetch     *FetchCoordinator
	transport Transport
	identity  *SignerIdentity
	metrics   *Metrics
	logger    zerolog.Logger
	cfg       LoopConfig

	mu     sync.Mutex
	txPool []*consensus.Transaction
}

// SetMetrics attaches a Metrics bundle the loop reports into. Safe to call
// with nil to disable reporting.
func (l *ConsensusLoop) SetMetrics(m *Metrics) {
	l.metrics = m
}

// SetLogger attaches the structured logger the loop reports freeze,
// vote-flip-throttle, and fatal-rejection events to.
func (l *ConsensusLoop) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

func NewLoop(chain *FrozenChain, unfrozen *UnfrozenStore, votes *VoteTallier, producer *Producer, fetch *FetchCoordinator, transport Transport, identity *SignerIdentity, cfg LoopConfig) *ConsensusLoop {
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = 300 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}
	return &ConsensusLoop{
		chain:     chain,
		unfrozen:  unfrozen,
		votes:     votes,
		producer:  producer,
		fetch:     fetch,
		transport: transport,
		identity:  identity,
		logger:    zerolog.Nop(),
		cfg:       cfg,
	}
}

// SubmitTransaction adds tx to the pool considered by the next production
// attempt.
func (l *ConsensusLoop) SubmitTransaction(tx *consensus.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txPool = append(l.txPool, tx)
}

// Run drives the loop until ctx is cancelled, sleeping cfg.StepInterval
// between steps.
func (l *ConsensusLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.StepInterval)
	defer ticker.Stop()
	for {
		l.Step(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step runs one iteration of the four phases. It is exported separately
// from Run so tests can drive it deterministically.
func (l *ConsensusLoop) Step(ctx context.Context) {
	l.ingestIncoming()
	l.produceAndVote(ctx)
	l.tryFreeze()
	l.requestMissingIfBehind()
}

func (l *ConsensusLoop) ingestIncoming() {
	for _, b := range l.transport.PollCandidates() {
		l.fetch.RecordBestKnownHeight(b.Height)
		if b.Height <= l.chain.Height() {
			continue
		}
		position := 0
		l.unfrozen.Add(b, nil, nil, position)
	}
	for _, v := range l.transport.PollVotes() {
		l.fetch.RecordBestKnownHeight(v.Height)
		if !v.Verify(l.identity.Scheme()) {
			continue
		}
		if !l.isCycleMember(v.Voter) {
			continue
		}
		if !l.votes.RecordVote(v.Height, v.Voter, v.CandidateHash, l.cfg.Now()) {
			if l.metrics != nil {
				l.metrics.VotesThrottled.Inc()
			}
			l.logger.Warn().Uint64("height", v.Height).Str("voter", fmt.Sprintf("%x", v.Voter)).Msg("vote flip throttled")
		}
	}
}

// isCycleMember reports whether id is authorised to vote at the current
// frozen tip (§4.6 register_vote precondition 1): it must belong to the
// tracker's current cycle set, unless the chain is still in its genesis
// cycle (no signer has yet produced a block, so no committee exists to
// check membership against).
func (l *ConsensusLoop) isCycleMember(id consensus.Identifier) bool {
	tracker := l.chain.TipTracker()
	if tracker == nil || len(tracker.Identifiers) == 0 {
		return true
	}
	_, ok := tracker.CycleSet()[id]
	return ok
}

func (l *ConsensusLoop) produceAndVote(ctx context.Context) {
	l.mu.Lock()
	pool := append([]*consensus.Transaction(nil), l.txPool...)
	l.mu.Unlock()

	cand, err := l.producer.ProduceNext(ctx, pool)
	if err != nil {
		return
	}
	l.unfrozen.Add(cand.Block, cand.Snapshot, cand.Tracker, 0)
	if l.metrics != nil {
		l.metrics.CandidatesProduced.Inc()
	}
	l.transport.BroadcastCandidate(cand.Block)
	l.castVote(cand.Block)
}

func (l *ConsensusLoop) castVote(block *consensus.Block) {
	vote := VoteMessage{
		Height:        block.Height,
		CandidateHash: block.Hash(),
		Voter:         l.identity.ID,
		TimestampMs:   l.cfg.Now(),
	}
	if err := vote.Sign(l.identity.Scheme(), l.identity.Secret()); err != nil {
		return
	}
	if l.isCycleMember(vote.Voter) {
		if !l.votes.RecordVote(vote.Height, vote.Voter, vote.CandidateHash, vote.TimestampMs) {
			if l.metrics != nil {
				l.metrics.VotesThrottled.Inc()
			}
			l.logger.Warn().Uint64("height", vote.Height).Str("voter", fmt.Sprintf("%x", vote.Voter)).Msg("vote flip throttled")
		}
	}
	if l.metrics != nil {
		l.metrics.VotesCast.Inc()
	}
	l.transport.BroadcastVote(vote)
}

func (l *ConsensusLoop) tryFreeze() {
	height := l.chain.Height() + 1
	leader, ok := l.votes.Leader(height)
	if !ok {
		return
	}
	cycleSize := 1
	if l.cfg.CycleSize != nil {
		if n := l.cfg.CycleSize(); n > 0 {
			cycleSize = n
		}
	}
	if !l.votes.ReachesSupermajority(height, leader, cycleSize) {
		return
	}
	block, _, _, ok := l.unfrozen.Get(height, leader)
	if !ok {
		return
	}
	if _, err := l.chain.Append(block); err != nil {
		if l.metrics != nil {
			l.metrics.CandidatesRejected.WithLabelValues(string(consensus.Code(err))).Inc()
		}
		event := l.logger.Warn()
		if consensus.IsFatal(err) {
			event = l.logger.Error()
		}
		event.Uint64("height", height).Str("hash", fmt.Sprintf("%x", leader)).
			Str("kind", string(consensus.Code(err))).Err(err).Msg("candidate rejected at freeze")
		return
	}
	if l.metrics != nil {
		l.metrics.BlocksFrozen.Inc()
		l.metrics.FrozenHeight.Set(float64(height))
	}
	l.logger.Info().Uint64("height", height).Str("hash", fmt.Sprintf("%x", leader)).Msg("block frozen")
	l.unfrozen.DropBelow(height)
}

func (l *ConsensusLoop) requestMissingIfBehind() {
	req, ok := l.fetch.NextRequest(l.chain.Height())
	if !ok {
		return
	}
	if l.metrics != nil {
		l.metrics.FetchRequests.Inc()
	}
	_ = req // not sent: Transport has no method for missing-block requests
}

// Status is a value-typed snapshot of the loop's cross-thread-visible
// state. Each field is read under the short-lived lock of the component
// that owns it (FrozenChain, FetchCoordinator), so callers (status
// endpoints, log lines) never block production/freezing for longer than one
// field read; the fields are not read together atomically.
type Status struct {
	FrozenHeight    uint64
	FrozenTipHash   consensus.Hash
	BestKnownHeight uint64
}

// Status returns a snapshot of the loop's current state.
func (l *ConsensusLoop) Status() Status {
	return Status{
		FrozenHeight:    l.chain.Height(),
		FrozenTipHash:   l.chain.TipHash(),
		BestKnownHeight: l.fetch.BestKnownHeight(),
	}
}
