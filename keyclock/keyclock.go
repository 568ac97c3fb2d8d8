// Package keyclock implements the dependency-set variant's per-key logical
// clocks and quorum aggregation described in spec §4.3: KeyClocks derives a
// clock/dependency-set for a command from its keys, QuorumClocks aggregates
// the fast quorum's replies. Grounded on original_source's
// src/protocol/newt/mod.rs (KeyClocks::bump_and_vote / QuorumClocks::add) —
// the teacher's Basic-only EPaxos clone has no equivalent.
package keyclock

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// VoteRange records that a process extended a key's clock from (low, high],
// i.e. it voted for timestamps low+1..=high on that key. Vote ranges are
// monotone and never overlap between processes for the same key, per spec.
type VoteRange struct {
	Key  string
	Low  uint64
	High uint64
}

// KeyClocks tracks, per key, the highest timestamp assigned so far, plus
// which Dot claimed each timestamp unit. The owner records let a committed
// command's scalar clock be translated into the VClock "dependency-clock"
// the graph executor (package executor) consumes: every owner below a
// command's committed clock, on a key it touches, is a dependency.
type KeyClocks struct {
	mu    sync.Mutex
	clock map[string]uint64

	// owners[key][t] is the dot that claimed timestamp t on key.
	owners map[string]map[uint64]proto.Dot
}

func New() *KeyClocks {
	return &KeyClocks{
		clock:  make(map[string]uint64),
		owners: make(map[string]map[uint64]proto.Dot),
	}
}

// BumpFor returns a clock value >= the current timestamp of every key cmd
// touches, one higher than the maximum seen so far (a fresh logical tick),
// without mutating any key's clock. Used by a quorum member to propose a
// clock in response to a Collect, per spec §4.3.
func (k *KeyClocks) BumpFor(cmd proto.Command) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.maxOfUnlocked(cmd.Keys()) + 1
}

func (k *KeyClocks) maxOfUnlocked(keys []string) uint64 {
	var max uint64
	for _, key := range keys {
		if c := k.clock[key]; c > max {
			max = c
		}
	}
	return max
}

// ProcessVotes raises every key cmd touches up to target, returning one
// VoteRange per key that needed advancing. After the call each touched
// key's clock is at least target: a key already at or above target is left
// unchanged and produces no VoteRange. owner is
// recorded against every newly claimed timestamp unit so a later command
// can resolve its dependencies via DepsForClock.
func (k *KeyClocks) ProcessVotes(cmd proto.Command, target uint64, owner proto.Dot) []VoteRange {
	k.mu.Lock()
	defer k.mu.Unlock()

	votes := make([]VoteRange, 0, len(cmd.Ops))
	for _, key := range cmd.Keys() {
		low := k.clock[key]
		if target > low {
			votes = append(votes, VoteRange{Key: key, Low: low, High: target})
			k.clock[key] = target

			units, ok := k.owners[key]
			if !ok {
				units = make(map[uint64]proto.Dot)
				k.owners[key] = units
			}
			for t := low + 1; t <= target; t++ {
				units[t] = owner
			}
		}
	}
	return votes
}

// DepsForClock resolves cmd's dependency-clock at commit time: every dot
// (other than self) that claimed a timestamp at or below committed on a key
// cmd touches. Grounded on src/protocol/newt/mod.rs's deps-from-votes
// translation, simplified to a direct owner lookup instead of a compressed
// interval index.
func (k *KeyClocks) DepsForClock(cmd proto.Command, committed uint64, self proto.Dot) proto.VClock {
	k.mu.Lock()
	defer k.mu.Unlock()

	deps := proto.NewVClock(nil)
	for _, key := range cmd.Keys() {
		units, ok := k.owners[key]
		if !ok {
			continue
		}
		for t := uint64(1); t <= committed; t++ {
			owner, ok := units[t]
			if !ok || owner == self {
				continue
			}
			deps.Add(owner.Source, owner.Sequence)
		}
	}
	return deps
}

// ReplayVotes applies vote ranges originated elsewhere (another replica's
// CollectAck contributions, echoed in a Commit message) to this replica's
// own KeyClocks: each key's clock is raised to at least vote.High, and owner
// is recorded for any not-yet-owned unit in the range. Idempotent — safe to
// call even on a replica that already produced some of these votes itself.
func (k *KeyClocks) ReplayVotes(votes []VoteRange, owner proto.Dot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, v := range votes {
		if v.High > k.clock[v.Key] {
			k.clock[v.Key] = v.High
		}
		units, ok := k.owners[v.Key]
		if !ok {
			units = make(map[uint64]proto.Dot)
			k.owners[v.Key] = units
		}
		for t := v.Low + 1; t <= v.High; t++ {
			if _, claimed := units[t]; !claimed {
				units[t] = owner
			}
		}
	}
}

// Phantom raises each voted key's clock to at least vote.High without
// recording an owner, so the boundary advances but DepsForClock never
// attributes a dependency to it (spec §4.3 "phantom vote": an out-of-band
// clock bump that unblocks execution without delivering a command).
func (k *KeyClocks) Phantom(votes []VoteRange) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, v := range votes {
		if v.High > k.clock[v.Key] {
			k.clock[v.Key] = v.High
		}
	}
}

// Clock returns the current per-key clock value, for tests and diagnostics.
func (k *KeyClocks) Clock(key string) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.clock[key]
}
