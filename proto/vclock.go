package proto

import "sort"

// VClock is a vector clock over ProcessId, as described in spec §3: it
// supports add, a per-process contiguous frontier, membership tests and a
// component-wise min. Zero value is an empty clock ready to use.
type VClock struct {
	m map[ProcessId]uint64
}

// NewVClock builds a VClock, optionally seeded from a map of per-process
// high-water sequences.
func NewVClock(seed map[ProcessId]uint64) VClock {
	m := make(map[ProcessId]uint64, len(seed))
	for p, s := range seed {
		m[p] = s
	}
	return VClock{m: m}
}

func (c *VClock) ensure() {
	if c.m == nil {
		c.m = make(map[ProcessId]uint64)
	}
}

// Add records that pid has produced up through sequence seq, raising the
// clock's component for pid if seq is higher than what's recorded.
func (c *VClock) Add(pid ProcessId, seq uint64) {
	c.ensure()
	if cur := c.m[pid]; seq > cur {
		c.m[pid] = seq
	}
}

// Frontier returns the highest contiguous sequence recorded for pid. Because
// VClock (unlike ExecutedClock) only ever stores a single high-water mark per
// process, Frontier and the stored value coincide.
func (c VClock) Frontier(pid ProcessId) uint64 {
	if c.m == nil {
		return 0
	}
	return c.m[pid]
}

// Contains reports whether seq is covered by pid's frontier.
func (c VClock) Contains(pid ProcessId, seq uint64) bool {
	return c.Frontier(pid) >= seq
}

// ContainsDot is sugar over Contains for a Dot.
func (c VClock) ContainsDot(d Dot) bool {
	return c.Contains(d.Source, d.Sequence)
}

// Merge raises every component of c to the max of itself and o's (join).
func (c *VClock) Merge(o VClock) {
	c.ensure()
	for p, s := range o.m {
		if cur := c.m[p]; s > cur {
			c.m[p] = s
		}
	}
}

// Min returns the component-wise minimum of a and b. Processes missing from
// either side are treated as 0, matching the GC stability computation in
// spec §4.7 (a peer never heard from contributes nothing to the minimum).
func Min(a, b VClock) VClock {
	out := NewVClock(nil)
	seen := make(map[ProcessId]struct{}, len(a.m)+len(b.m))
	for p := range a.m {
		seen[p] = struct{}{}
	}
	for p := range b.m {
		seen[p] = struct{}{}
	}
	for p := range seen {
		av := a.Frontier(p)
		bv := b.Frontier(p)
		if av < bv {
			out.m[p] = av
		} else {
			out.m[p] = bv
		}
	}
	return out
}

// Iter invokes fn for every (ProcessId, frontier) pair, in ascending
// ProcessId order, for deterministic traversal (the Tarjan dependency scan
// in executor relies on deterministic iteration of a command's dependency
// clock only insofar as it must visit every process; order across processes
// does not affect correctness but determinism keeps tests reproducible).
func (c VClock) Iter(fn func(pid ProcessId, frontier uint64)) {
	pids := make([]ProcessId, 0, len(c.m))
	for p := range c.m {
		pids = append(pids, p)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, p := range pids {
		fn(p, c.m[p])
	}
}

// Clone returns an independent copy.
func (c VClock) Clone() VClock {
	return NewVClock(c.m)
}

// Equal reports whether a and b have identical components (missing entries
// treated as 0).
func (c VClock) Equal(o VClock) bool {
	seen := make(map[ProcessId]struct{}, len(c.m)+len(o.m))
	for p := range c.m {
		seen[p] = struct{}{}
	}
	for p := range o.m {
		seen[p] = struct{}{}
	}
	for p := range seen {
		if c.Frontier(p) != o.Frontier(p) {
			return false
		}
	}
	return true
}
