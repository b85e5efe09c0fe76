package node

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the verifier's operational counters and gauges for
// scraping. Grounded on the teacher's prometheus-based node instrumentation;
// adapted from per-block/per-peer counters to the account-balance, vote-
// driven domain.
type Metrics struct {
	FrozenHeight       prometheus.Gauge
	CandidatesProduced prometheus.Counter
	CandidatesRejected *prometheus.CounterVec
	VotesCast          prometheus.Counter
	VotesThrottled     prometheus.Counter
	BlocksFrozen       prometheus.Counter
	FetchRequests      prometheus.Counter
}

// NewMetrics constructs a Metrics bundle and registers it with reg. Passing
// a dedicated *prometheus.Registry (rather than the global default) keeps
// repeated test construction from panicking on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FrozenHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "verifier",
			Name:      "frozen_height",
			Help:      "Height of the highest frozen block.",
		}),
		CandidatesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "candidates_produced_total",
			Help:      "Number of block candidates this verifier has produced.",
		}),
		CandidatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "candidates_rejected_total",
			Help:      "Number of candidates rejected while appending to the frozen chain, by error code.",
		}, []string{"code"}),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "votes_cast_total",
			Help:      "Number of votes this verifier has cast.",
		}),
		VotesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "votes_throttled_total",
			Help:      "Number of vote flips rejected by the flip throttle.",
		}),
		BlocksFrozen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "blocks_frozen_total",
			Help:      "Number of blocks this verifier has frozen.",
		}),
		FetchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verifier",
			Name:      "fetch_requests_total",
			Help:      "Number of missing-block requests issued.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.FrozenHeight,
			m.CandidatesProduced,
			m.CandidatesRejected,
			m.VotesCast,
			m.VotesThrottled,
			m.BlocksFrozen,
			m.FetchRequests,
		)
	}
	return m
}
