package protocol

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/gc"
	"github.com/epochdb/epochdb/internal/metrics"
	"github.com/epochdb/epochdb/keyclock"
	"github.com/epochdb/epochdb/process"
	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/table"
)

// DepSet is the "collect with clock" variant of spec §4.3: Submit adds a
// Collect/CollectAck round between Start and Commit, deriving a logical
// clock per command from KeyClocks and committing once the fast path
// condition holds. Grounded on original_source's src/protocol/newt/mod.rs;
// the teacher repo has no equivalent (Basic-only EPaxos clone).
type DepSet struct {
	log       zerolog.Logger
	proc      *process.Process
	tbl       *table.Table
	transport Transport
	handoff   ExecutionHandoff
	direct    DirectExecutionHandoff
	gcol      *gc.Collector
	metrics   *metrics.Registry

	keyClocks       *keyclock.KeyClocks
	phantomsEnabled bool
	executeAtCommit bool
}

// NewDepSet builds a DepSet protocol instance. phantomsEnabled toggles the
// optional out-of-band clock-bump optimization of spec §4.3 — correctness
// must not (and here does not) depend on it (§9 open question). reg may be
// nil.
func NewDepSet(proc *process.Process, tbl *table.Table, transport Transport, handoff ExecutionHandoff, direct DirectExecutionHandoff, gcol *gc.Collector, reg *metrics.Registry, phantomsEnabled bool, log zerolog.Logger) *DepSet {
	return &DepSet{
		log:             log.With().Str("component", "protocol.depset").Logger(),
		proc:            proc,
		tbl:             tbl,
		transport:       transport,
		handoff:         handoff,
		direct:          direct,
		gcol:            gcol,
		metrics:         reg,
		keyClocks:       keyclock.New(),
		phantomsEnabled: phantomsEnabled,
		executeAtCommit: direct != nil,
	}
}

// Submit assigns a dot, proposes an initial clock from the local KeyClocks,
// counts itself as the first CollectAck contributor, and broadcasts
// Collect to the rest of the fast quorum (spec §4.3 "Submit sends
// Collect{dot, command, proposed_clock}").
func (d *DepSet) Submit(cmd proto.Command) (proto.Dot, error) {
	start := time.Now()
	dot := d.proc.NextDot()
	info := d.tbl.Get(dot)
	info.SetCommand(cmd)

	quorum := d.proc.FastQuorum()
	qc := info.EnsureQuorumClocks(len(quorum) + 1) // + self

	proposed := d.keyClocks.BumpFor(cmd)
	selfVotes := d.keyClocks.ProcessVotes(cmd, proposed, dot)
	qc.Add(d.proc.ID(), proposed, selfVotes)

	for _, peer := range quorum {
		d.transport.Send(peer, CollectMsg{Dot: dot, Command: cmd, ProposedClock: proposed})
	}

	info.WaitCommitted()
	if d.metrics != nil {
		d.metrics.QuorumRoundLatency.Observe(time.Since(start).Seconds())
	}
	return dot, nil
}

// HandleCollect computes this replica's local clock proposal — at least
// proposedClock, at least one past every key the command touches — records
// the command, advances KeyClocks, and replies CollectAck (spec §4.3).
func (d *DepSet) HandleCollect(from proto.ProcessId, dot proto.Dot, cmd proto.Command, proposedClock uint64) {
	d.tbl.Get(dot).SetCommand(cmd)

	target := d.keyClocks.BumpFor(cmd)
	if proposedClock > target {
		target = proposedClock
	}
	votes := d.keyClocks.ProcessVotes(cmd, target, dot)

	d.transport.Send(from, CollectAckMsg{Dot: dot, Clock: target, Votes: votes})
}

// HandleCollectAck aggregates one quorum member's reply at the coordinator.
// Once every fast-quorum member has replied, it takes the fast path if the
// maximum proposed clock was proposed by at least f members (spec §4.3);
// otherwise the slow path is required, which this implementation does not
// realize (§9 open question — callers should treat ErrSlowPathRequired as
// fatal for the affected dot rather than silently stalling).
func (d *DepSet) HandleCollectAck(from proto.ProcessId, dot proto.Dot, clock uint64, votes []keyclock.VoteRange) error {
	info := d.tbl.Get(dot)
	quorumSize := len(d.proc.FastQuorum()) + 1 // + self, already contributed in Submit
	qc := info.EnsureQuorumClocks(quorumSize)

	maxClock, _, accepted := qc.Add(from, clock, votes)
	if !accepted {
		d.log.Warn().Stringer("dot", dot).Uint64("from", uint64(from)).Msg("duplicate collect ack ignored")
		return nil
	}
	if !qc.All() {
		return nil
	}

	if !qc.FastPathOK(d.proc.F()) {
		d.log.Error().Stringer("dot", dot).Msg("fast path condition failed, slow path not implemented")
		return ErrSlowPathRequired
	}

	cmd := info.Command()
	if cmd == nil {
		d.log.Error().Stringer("dot", dot).Msg("fast path reached but command missing")
		return nil
	}

	// Resolve the dependency-clock once, at the coordinator, from its own
	// (already up to date) KeyClocks view, and ship the resolved VClock
	// rather than the scalar clock: a replica outside the fast quorum has no
	// basis to recompute it from `maxClock` alone (spec §4.4's dependency
	// clock is exactly what the executor consumes).
	allVotes := qc.Votes()
	deps := d.keyClocks.DepsForClock(*cmd, maxClock, dot)
	// Broadcast to every replica, self included: HandleCommit applies
	// commitLocally exactly once, on delivery, the same way the basic
	// variant's HandleStoreAck only sends and never applies directly.
	for _, to := range d.proc.All() {
		d.transport.Send(to, CommitMsg{Dot: dot, Command: cmd, Clock: deps, Votes: allVotes})
	}
	return nil
}

// HandleCommit applies a depset Commit: replays the resolved votes into this
// replica's KeyClocks (idempotent — a no-op for units it already owns from
// its own HandleCollect), then hands the command off using the
// coordinator-resolved dependency clock (spec §4.3/§4.4). A redelivered
// Commit for a dot already at or past Commit is a stale, idempotent
// duplicate (spec §7): it returns ErrStaleMessage without replaying votes or
// handing off a second time.
func (d *DepSet) HandleCommit(dot proto.Dot, cmd *proto.Command, deps proto.VClock, votes []keyclock.VoteRange) error {
	if cmd == nil {
		return nil
	}
	info := d.tbl.Get(dot)
	if info.Status() >= table.Commit {
		return ErrStaleMessage
	}
	info.SetCommand(*cmd)
	d.keyClocks.ReplayVotes(votes, dot)
	d.commitLocally(dot, *cmd, deps, votes)
	return nil
}

func (d *DepSet) commitLocally(dot proto.Dot, cmd proto.Command, deps proto.VClock, votes []keyclock.VoteRange) {
	info := d.tbl.Get(dot)
	info.SetClock(deps)

	if d.executeAtCommit {
		d.direct.ExecuteDirect(cmd)
	} else {
		d.handoff.Add(dot, cmd, deps)
	}
	info.Advance(table.Commit)
	if d.metrics != nil {
		d.metrics.CommittedDots.Inc()
	}

	d.tbl.Commit(dot)
}

// HandlePhantom raises local KeyClocks boundaries from an out-of-band vote
// without delivering a command (spec §4.3 "phantom votes"). Disabled unless
// phantomsEnabled, per the §9 decision that correctness never depends on it.
func (d *DepSet) HandlePhantom(votes []keyclock.VoteRange) {
	if !d.phantomsEnabled {
		return
	}
	d.keyClocks.Phantom(votes)
}

// HandleGarbageCollection and HandleStable route the GC messages of §4.3 to
// the Collector, shared with the basic variant.
func (d *DepSet) HandleGarbageCollection(from proto.ProcessId, committed proto.VClock) {
	d.gcol.HandleGarbageCollection(from, committed)
}

func (d *DepSet) HandleStable(stable proto.VClock) {
	d.gcol.HandleStable(stable)
}
