package executor

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// ExecutedClock is the per-replica AE-clock of spec §3: it records which
// dots have been applied to the KV store and tolerates gaps (a dot can
// become executed out of sequence relative to its process's other dots).
// Grounded on fantoch's threshold::AEClock, used the same way by
// fantoch_ps/src/executor/graph/tarjan.rs: Add reports whether a dot was
// previously missing, Frontier gives the highest *contiguous* executed
// sequence, Contains is ground truth for "has this exact dot executed".
type ExecutedClock struct {
	mu       sync.RWMutex
	executed map[proto.ProcessId]map[uint64]struct{}
	frontier map[proto.ProcessId]uint64
}

func NewExecutedClock() *ExecutedClock {
	return &ExecutedClock{
		executed: make(map[proto.ProcessId]map[uint64]struct{}),
		frontier: make(map[proto.ProcessId]uint64),
	}
}

// Add marks (pid, seq) executed. Returns true if it was previously missing;
// false means a double-execute, which callers must treat as a protocol
// violation (spec §7, §8 property 3: at most one removal per dot).
func (c *ExecutedClock) Add(pid proto.ProcessId, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.frontier[pid] {
		return false
	}
	set, ok := c.executed[pid]
	if !ok {
		set = make(map[uint64]struct{})
		c.executed[pid] = set
	}
	if _, already := set[seq]; already {
		return false
	}
	set[seq] = struct{}{}

	// advance the contiguous frontier as far as gaps allow
	next := c.frontier[pid] + 1
	for {
		if _, ok := set[next]; !ok {
			break
		}
		c.frontier[pid] = next
		delete(set, next)
		next++
	}
	return true
}

// Contains is ground truth for whether (pid, seq) has executed: either it is
// below or at the contiguous frontier, or it was executed out of order and
// still sits in the gap set.
func (c *ExecutedClock) Contains(pid proto.ProcessId, seq uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if seq <= c.frontier[pid] {
		return true
	}
	if set, ok := c.executed[pid]; ok {
		_, found := set[seq]
		return found
	}
	return false
}

// ContainsDot is sugar over Contains for a Dot.
func (c *ExecutedClock) ContainsDot(d proto.Dot) bool {
	return c.Contains(d.Source, d.Sequence)
}

// Frontier returns the highest contiguous executed sequence for pid.
func (c *ExecutedClock) Frontier(pid proto.ProcessId) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frontier[pid]
}

// Snapshot returns the frontier component of the clock as a proto.VClock,
// used by cross-shard bookkeeping and tests.
func (c *ExecutedClock) Snapshot() proto.VClock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seed := make(map[proto.ProcessId]uint64, len(c.frontier))
	for p, f := range c.frontier {
		seed[p] = f
	}
	return proto.NewVClock(seed)
}
