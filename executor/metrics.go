package executor

import "github.com/prometheus/client_golang/prometheus"

// GraphMetrics wires the executor's observability points into Prometheus,
// per SPEC_FULL.md's domain stack: SCC sizes (to see how much coordination
// the workload actually needs) and missing-dependency counts (to see how
// often cross-shard fetches or local stalls happen).
type GraphMetrics struct {
	sccSize           prometheus.Histogram
	missingDependency prometheus.Counter
}

// NewGraphMetrics registers the executor's metrics on reg. reg may be nil in
// tests, in which case metrics are silently dropped.
func NewGraphMetrics(reg prometheus.Registerer) *GraphMetrics {
	m := &GraphMetrics{
		sccSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epochdb_executor_scc_size",
			Help:    "Number of dots in each strongly connected component emitted by the executor.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		missingDependency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochdb_executor_missing_dependency_total",
			Help: "Number of times the executor aborted a traversal on a missing dependency.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sccSize, m.missingDependency)
	}
	return m
}

func (m *GraphMetrics) observeSCC(size int) {
	if m == nil {
		return
	}
	m.sccSize.Observe(float64(size))
}

func (m *GraphMetrics) incMissingDependency() {
	if m == nil {
		return
	}
	m.missingDependency.Inc()
}
