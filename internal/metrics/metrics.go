// Package metrics registers the prometheus collectors described in
// SPEC_FULL.md's DOMAIN STACK: committed/executed dot counters, quorum
// round latency, and backpressure stalls (spec §7 BackpressureStall). The
// executor's own SCC-size histogram and missing-dependency counter live next
// to their owner in package executor (see executor.GraphMetrics), and the
// stable-dot counter lives in package process; this package covers the
// protocol-level signals instead of duplicating per-package metric
// ownership.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the cross-cutting collectors a replica registers once at
// startup and passes down to the protocol constructors (via sim.New).
type Registry struct {
	CommittedDots prometheus.Counter
	ExecutedDots  prometheus.Counter

	QuorumRoundLatency prometheus.Histogram

	BackpressureStalls prometheus.Counter
}

// New builds and registers every collector against reg. Passing a nil
// Registerer is valid (e.g. in unit tests) and yields working, unregistered
// collectors.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CommittedDots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochdb_committed_dots_total",
			Help: "Total number of dots this replica has committed.",
		}),
		ExecutedDots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochdb_executed_dots_total",
			Help: "Total number of dots this replica has applied to the KV store.",
		}),
		QuorumRoundLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epochdb_quorum_round_latency_seconds",
			Help:    "Latency of a coordinator's fast-quorum round, from Submit to Commit.",
			Buckets: prometheus.DefBuckets,
		}),
		BackpressureStalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochdb_backpressure_stalls_total",
			Help: "Number of times a coordinator stalled submitting due to backpressure (spec §7).",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.CommittedDots, r.ExecutedDots, r.QuorumRoundLatency, r.BackpressureStalls)
	}
	return r
}
