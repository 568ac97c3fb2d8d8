package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CommittedDots.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "epochdb_committed_dots_total" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestNewWithNilRegistererDoesNotPanic(t *testing.T) {
	m := New(nil)
	assert.NotPanics(t, func() {
		m.ExecutedDots.Inc()
		m.QuorumRoundLatency.Observe(0.1)
		m.BackpressureStalls.Inc()
	})
}
