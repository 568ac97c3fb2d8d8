package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epochdb/epochdb/proto"
)

func TestGetCreatesEntryOnFirstAccess(t *testing.T) {
	tbl := New()
	dot := proto.NewDot(1, 1)

	assert.False(t, tbl.Contains(dot))
	info := tbl.Get(dot)
	assert.NotNil(t, info)
	assert.True(t, tbl.Contains(dot))
	assert.Same(t, info, tbl.Get(dot))
}

func TestCommitAdvancesStatusAndMyCommitted(t *testing.T) {
	tbl := New()
	dot := proto.NewDot(1, 3)
	tbl.Commit(dot)

	assert.Equal(t, Commit, tbl.Get(dot).Status())

	committed, _ := tbl.CommittedAndStable()
	assert.True(t, committed.ContainsDot(dot))
}

func TestCommittedByMergesNeverDecreases(t *testing.T) {
	tbl := New()
	tbl.Commit(proto.NewDot(2, 10)) // this replica's own committed clock reaches 10 on process 2

	tbl.CommittedBy(9, proto.NewVClock(map[proto.ProcessId]uint64{2: 5}))
	tbl.CommittedBy(9, proto.NewVClock(map[proto.ProcessId]uint64{2: 3})) // must not regress peer 9's advertised 5

	_, newlyStable := tbl.CommittedAndStable()
	assert.Equal(t, uint64(5), newlyStable.Frontier(2)) // min(10, 5) = 5, not min(10, 3)
}

func TestCommittedAndStableComputesMinAcrossPeers(t *testing.T) {
	tbl := New()
	d1 := proto.NewDot(1, 1)
	d2 := proto.NewDot(1, 2)
	tbl.Commit(d1)
	tbl.Commit(d2)

	tbl.CommittedBy(2, proto.NewVClock(map[proto.ProcessId]uint64{1: 1}))

	_, newlyStable := tbl.CommittedAndStable()
	assert.Equal(t, uint64(1), newlyStable.Frontier(1)) // min(2, 1) = 1, newly stable

	// a second round with no peer progress and no new commits yields nothing new
	_, newlyStable = tbl.CommittedAndStable()
	assert.Equal(t, uint64(0), newlyStable.Frontier(1))
}

func TestGCRemovesOnlyCommittedDotsAtOrBelowStable(t *testing.T) {
	tbl := New()
	committedDot := proto.NewDot(1, 1)
	uncommittedDot := proto.NewDot(1, 2)
	tbl.Commit(committedDot)
	tbl.Get(uncommittedDot) // create, but never commit

	stable := proto.NewVClock(map[proto.ProcessId]uint64{1: 2})
	removed := tbl.GC(stable)

	assert.Equal(t, 1, removed)
	assert.False(t, tbl.Contains(committedDot))
	assert.True(t, tbl.Contains(uncommittedDot))
}
