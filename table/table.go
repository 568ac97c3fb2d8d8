// Package table implements the Command Info Table of spec §4.2: a mapping
// from Dot to CommandInfo, partitioned across worker shards by the
// originating process id so updates to entries from the same coordinator
// serialize (spec §5). Grounded on teacher_src/consensus/scope.go's
// Scope.instances plus its sync.RWMutex-guarded map, and on
// original_source's src/protocol/common/table/mod.rs for the committed-clock
// aggregation / stability computation.
package table

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// shardCount is the number of lock stripes the table partitions dots
// across, by coordinator process id, per spec §5.
const shardCount = 16

type shard struct {
	mu      sync.Mutex
	byDot   map[proto.Dot]*Info
}

// Table is the Command Info Table.
type Table struct {
	shards [shardCount]*shard

	// committed-clock bookkeeping for GC (spec §4.7): this replica's own
	// committed set plus the latest advertised clock from every peer.
	gcMu          sync.Mutex
	myCommitted   proto.VClock
	peerCommitted map[proto.ProcessId]proto.VClock
	gcFrontier    proto.VClock // already-reclaimed low-water mark
}

func New() *Table {
	t := &Table{
		myCommitted:   proto.NewVClock(nil),
		peerCommitted: make(map[proto.ProcessId]proto.VClock),
		gcFrontier:    proto.NewVClock(nil),
	}
	for i := range t.shards {
		t.shards[i] = &shard{byDot: make(map[proto.Dot]*Info)}
	}
	return t
}

func (t *Table) shardFor(dot proto.Dot) *shard {
	return t.shards[uint64(dot.Source)%shardCount]
}

// Get returns the CommandInfo handle for dot, creating a default entry if
// absent (spec §4.2).
func (t *Table) Get(dot proto.Dot) *Info {
	s := t.shardFor(dot)
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.byDot[dot]
	if !ok {
		info = newInfo()
		s.byDot[dot] = info
	}
	return info
}

// Contains reports whether dot has an entry, without creating one.
func (t *Table) Contains(dot proto.Dot) bool {
	s := t.shardFor(dot)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byDot[dot]
	return ok
}

// Commit marks dot as locally committed and folds it into this process's
// committed clock used by GC (spec §4.2 `commit`).
func (t *Table) Commit(dot proto.Dot) {
	t.Get(dot).Advance(Commit)

	t.gcMu.Lock()
	defer t.gcMu.Unlock()
	t.myCommitted.Add(dot.Source, dot.Sequence)
}

// CommittedBy records peer from's advertised committed clock, merging it
// (never decreasing) into the per-peer committed-clocks map, per spec §4.7.
func (t *Table) CommittedBy(from proto.ProcessId, clock proto.VClock) {
	t.gcMu.Lock()
	defer t.gcMu.Unlock()
	cur, ok := t.peerCommitted[from]
	if !ok {
		t.peerCommitted[from] = clock.Clone()
		return
	}
	cur.Merge(clock)
	t.peerCommitted[from] = cur
}

// CommittedAndStable computes the component-wise minimum of every peer's
// committed clock (including self), and returns this replica's own
// committed clock plus the set of dots that newly became stable this round,
// i.e. those whose frontier
// entries sit at or below the new minimum but above what was already
// reclaimed (spec §4.2 `committed_and_stable`).
func (t *Table) CommittedAndStable() (proto.VClock, proto.VClock) {
	t.gcMu.Lock()
	defer t.gcMu.Unlock()

	min := t.myCommitted.Clone()
	for _, c := range t.peerCommitted {
		min = proto.Min(min, c)
	}

	newlyStable := proto.NewVClock(nil)
	seen := map[proto.ProcessId]struct{}{}
	min.Iter(func(pid proto.ProcessId, frontier uint64) {
		seen[pid] = struct{}{}
		if frontier > t.gcFrontier.Frontier(pid) {
			newlyStable.Add(pid, frontier)
		}
	})
	t.gcFrontier.Merge(min)

	return t.myCommitted.Clone(), newlyStable
}

// GC removes every dot at or below stable's per-process frontier from the
// table, and returns how many entries were removed. It never removes a dot
// that was never committed (spec §8 property 6) — entries below Commit are
// left alone and will simply be recreated if a stray message still
// references them, which is harmless since they're below the stable
// frontier and will never be revisited by discovery.
func (t *Table) GC(stable proto.VClock) int {
	removed := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for dot, info := range s.byDot {
			if !stable.ContainsDot(dot) {
				continue
			}
			if info.Status() < Commit {
				continue
			}
			delete(s.byDot, dot)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}
