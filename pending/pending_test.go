package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epochdb/epochdb/proto"
)

func TestAggregatedModeWaitsForEveryKey(t *testing.T) {
	agg := NewAggregator(Aggregated)
	rifl := proto.NewRifl("c1", 1)
	assert.NoError(t, agg.Register(rifl, 2))

	_, ready := agg.AddPartial(proto.Partial{Rifl: rifl, Key: "a", Found: true})
	assert.False(t, ready)
	assert.Equal(t, 1, agg.Pending())

	result, ready := agg.AddPartial(proto.Partial{Rifl: rifl, Key: "b", Found: false})
	assert.True(t, ready)
	assert.Len(t, result.Prior, 2)
	assert.Equal(t, 0, agg.Pending())
}

func TestPartialModeEmitsEachPartialSeparately(t *testing.T) {
	agg := NewAggregator(Partial)
	rifl := proto.NewRifl("c1", 1)
	assert.NoError(t, agg.Register(rifl, 2))

	result, ready := agg.AddPartial(proto.Partial{Rifl: rifl, Key: "a"})
	assert.True(t, ready)
	assert.Len(t, result.Prior, 1)
	assert.Equal(t, 1, agg.Pending()) // one key still outstanding

	_, ready = agg.AddPartial(proto.Partial{Rifl: rifl, Key: "b"})
	assert.True(t, ready)
	assert.Equal(t, 0, agg.Pending())
}

func TestDoubleRegisterIsRejected(t *testing.T) {
	agg := NewAggregator(Aggregated)
	rifl := proto.NewRifl("c1", 1)
	assert.NoError(t, agg.Register(rifl, 1))
	assert.ErrorIs(t, agg.Register(rifl, 1), ErrAlreadyRegistered)
}

func TestUnregisteredPartialIsSilentlyDropped(t *testing.T) {
	agg := NewAggregator(Aggregated)
	_, ready := agg.AddPartial(proto.Partial{Rifl: proto.NewRifl("ghost", 1), Key: "a"})
	assert.False(t, ready)
}
