package gc

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/table"
)

type fakeBroadcaster struct {
	sent []proto.VClock
}

func (f *fakeBroadcaster) BroadcastGarbageCollection(committed proto.VClock) {
	f.sent = append(f.sent, committed)
}

type fakeStability struct {
	total int
}

func (f *fakeStability) Stable(count int) { f.total += count }

func TestTickBroadcastsOwnCommittedClock(t *testing.T) {
	tbl := table.New()
	tbl.Commit(proto.NewDot(1, 1))

	bcast := &fakeBroadcaster{}
	c := New(tbl, bcast, &fakeStability{}, zerolog.Nop())
	c.Tick()

	if assert.Len(t, bcast.sent, 1) {
		assert.True(t, bcast.sent[0].ContainsDot(proto.NewDot(1, 1)))
	}
}

func TestHandleGarbageCollectionMergesPeerClock(t *testing.T) {
	tbl := table.New()
	tbl.Commit(proto.NewDot(1, 5))

	bcast := &fakeBroadcaster{}
	c := New(tbl, bcast, &fakeStability{}, zerolog.Nop())

	c.HandleGarbageCollection(2, proto.NewVClock(map[proto.ProcessId]uint64{1: 5}))
	committed, newlyStable := tbl.CommittedAndStable()
	assert.True(t, committed.ContainsDot(proto.NewDot(1, 5)))
	assert.Equal(t, uint64(5), newlyStable.Frontier(1))
}

func TestHandleStableReclaimsAndRecordsStability(t *testing.T) {
	tbl := table.New()
	committedDot := proto.NewDot(1, 1)
	tbl.Commit(committedDot)

	stability := &fakeStability{}
	c := New(tbl, &fakeBroadcaster{}, stability, zerolog.Nop())

	c.HandleStable(proto.NewVClock(map[proto.ProcessId]uint64{1: 1}))
	assert.False(t, tbl.Contains(committedDot))
	assert.Equal(t, 1, stability.total)
}

func TestTickEndToEndReachesStability(t *testing.T) {
	tbl := table.New()
	dot := proto.NewDot(1, 1)
	tbl.Commit(dot)
	// Simulate a peer independently reporting the same committed clock so
	// the min computation in CommittedAndStable doesn't block on an absent
	// peer entry.
	tbl.CommittedBy(2, proto.NewVClock(map[proto.ProcessId]uint64{1: 1}))

	stability := &fakeStability{}
	c := New(tbl, &fakeBroadcaster{}, stability, zerolog.Nop())
	c.Tick()

	assert.False(t, tbl.Contains(dot))
	assert.Equal(t, 1, stability.total)
}
