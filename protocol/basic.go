package protocol

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/gc"
	"github.com/epochdb/epochdb/internal/metrics"
	"github.com/epochdb/epochdb/process"
	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/table"
)

// Basic is the Basic (no dependency tracking) variant of spec §4.3: a
// coordinator runs Start -> Collect (awaiting acks) -> Commit per dot.
// Grounded on teacher_src/consensus/scope.go's ExecuteQuery/preAcceptPhase
// fan-out, simplified to the single-round-trip Store/StoreAck/Commit shape
// of original_source's fantoch/src/protocol/basic.rs.
type Basic struct {
	log       zerolog.Logger
	proc      *process.Process
	tbl       *table.Table
	transport Transport
	handoff   ExecutionHandoff
	direct    DirectExecutionHandoff
	gcol      *gc.Collector
	metrics   *metrics.Registry
	executeAtCommit bool
}

// NewBasic builds a Basic protocol instance. Exactly one of handoff or
// direct should be non-nil, selected by config.ExecuteAtCommit
// (SPEC_FULL.md supplemented feature). metrics may be nil.
func NewBasic(proc *process.Process, tbl *table.Table, transport Transport, handoff ExecutionHandoff, direct DirectExecutionHandoff, gcol *gc.Collector, reg *metrics.Registry, log zerolog.Logger) *Basic {
	return &Basic{
		log:             log.With().Str("component", "protocol.basic").Logger(),
		proc:            proc,
		tbl:             tbl,
		transport:       transport,
		handoff:         handoff,
		direct:          direct,
		gcol:            gcol,
		metrics:         reg,
		executeAtCommit: direct != nil,
	}
}

// Submit assigns a dot to cmd (coordinator role), broadcasts Store to the
// fast quorum, and blocks until the command has committed on this replica
// (spec §4.3 handle_submit, and the synchronous "S1" scenario shape).
func (b *Basic) Submit(cmd proto.Command) (proto.Dot, error) {
	start := time.Now()
	dot := b.proc.NextDot()
	info := b.tbl.Get(dot)
	info.SetCommand(cmd)

	quorum := b.proc.FastQuorum()
	info.SetMissingAcks(len(quorum))

	b.log.Debug().Stringer("dot", dot).Int("quorum", len(quorum)).Msg("submit: broadcasting store")

	var eg errgroup.Group
	for _, peer := range quorum {
		peer := peer
		eg.Go(func() error {
			b.transport.Send(peer, StoreMsg{Dot: dot, Command: cmd})
			return nil
		})
	}
	_ = eg.Wait()

	info.WaitCommitted()
	if b.metrics != nil {
		b.metrics.QuorumRoundLatency.Observe(time.Since(start).Seconds())
	}
	return dot, nil
}

// HandleStore records command under dot and replies StoreAck to from only
// (spec §4.3 handle_store).
func (b *Basic) HandleStore(from proto.ProcessId, dot proto.Dot, cmd proto.Command) {
	b.tbl.Get(dot).SetCommand(cmd)
	b.transport.Send(from, StoreAckMsg{Dot: dot})
}

// HandleStoreAck decrements the coordinator's outstanding ack count; once it
// reaches zero, broadcasts Commit to every replica (spec §4.3 handle_store_ack).
func (b *Basic) HandleStoreAck(dot proto.Dot) {
	info := b.tbl.Get(dot)
	if remaining := info.DecrementMissingAcks(); remaining > 0 {
		return
	}
	cmd := info.Command()
	if cmd == nil {
		b.log.Error().Stringer("dot", dot).Msg("quorum reached but command missing")
		return
	}
	for _, to := range b.proc.All() {
		b.transport.Send(to, CommitMsg{Dot: dot, Command: cmd})
	}
}

// HandleCommit hands the command off for execution (graph executor or the
// execute_at_commit bypass), then sets the dot's status to Commit (which
// releases a waiting Submit), and forwards CommitDot{dot} to self for GC
// bookkeeping (spec §4.3 handle_commit). A
// redelivered Commit for a dot already at or past Commit is a stale,
// idempotent duplicate (spec §7): it returns ErrStaleMessage without
// touching the handoff a second time.
func (b *Basic) HandleCommit(dot proto.Dot, cmd *proto.Command) error {
	info := b.tbl.Get(dot)
	if info.Status() >= table.Commit {
		return ErrStaleMessage
	}
	if info.Command() == nil && cmd != nil {
		info.SetCommand(*cmd)
	}

	if cmd != nil {
		if b.executeAtCommit {
			b.direct.ExecuteDirect(*cmd)
		} else {
			b.handoff.Add(dot, *cmd, proto.VClock{})
		}
	}
	info.Advance(table.Commit)
	if b.metrics != nil {
		b.metrics.CommittedDots.Inc()
	}

	b.HandleCommitDot(dot)
	return nil
}

// HandleCommitDot marks dot as locally committed in the table, the
// bookkeeping step GC relies on (spec §4.3 handle_commit_dot).
func (b *Basic) HandleCommitDot(dot proto.Dot) {
	b.tbl.Commit(dot)
}

// HandleGarbageCollection and HandleStable route the GC messages of §4.3 to
// the Collector, which owns the actual aggregation (package gc).
func (b *Basic) HandleGarbageCollection(from proto.ProcessId, committed proto.VClock) {
	b.gcol.HandleGarbageCollection(from, committed)
}

func (b *Basic) HandleStable(stable proto.VClock) {
	b.gcol.HandleStable(stable)
}
