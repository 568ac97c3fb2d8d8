package sim

import (
	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/config"
	"github.com/epochdb/epochdb/executor"
	"github.com/epochdb/epochdb/gc"
	"github.com/epochdb/epochdb/internal/metrics"
	"github.com/epochdb/epochdb/kvstore"
	"github.com/epochdb/epochdb/pending"
	"github.com/epochdb/epochdb/process"
	"github.com/epochdb/epochdb/protocol"
	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/table"
)

// Replica bundles one simulated process with every component spec §4 assigns
// to a replica: the protocol state machine, command info table, dependency
// graph executor, KV store and pending aggregator. Grounded on
// teacher_src/cluster/node.go's per-node wiring, generalized from a single
// fixed EPaxos variant to either of spec §4.3's two.
type Replica struct {
	ID      proto.ProcessId
	Process *process.Process
	Table   *table.Table
	Graph   *executor.Graph
	Store   kvstore.Store
	Pending *pending.Aggregator
	GC      *gc.Collector
	Proto   protocol.Protocol

	handoff *graphHandoff
	direct  *directHandoff
}

func newReplica(cfg config.Config, id proto.ProcessId, transport protocol.Transport, bcast gc.Broadcaster, onResult func(proto.CommandResult), reg *metrics.Registry, log zerolog.Logger) *Replica {
	variant := process.Basic
	if cfg.Variant == config.VariantDepSet {
		variant = process.DependencySet
	}

	proc := process.New(process.Config{
		ID:      id,
		ShardID: cfg.ShardID,
		Variant: variant,
		N:       cfg.N,
		F:       cfg.F,
	}, log, nil)

	tbl := table.New()
	store := kvstore.NewMemory()
	agg := pending.NewAggregator(pending.Aggregated)

	graphMetrics := executor.NewGraphMetrics(nil)
	graph := executor.NewGraph(executor.Config{
		LocalShard:          cfg.ShardID,
		TransitiveConflicts: cfg.TransitiveConflicts,
	}, log, graphMetrics)

	gcol := gc.New(tbl, bcast, proc, log)

	r := &Replica{
		ID:      id,
		Process: proc,
		Table:   tbl,
		Graph:   graph,
		Store:   store,
		Pending: agg,
		GC:      gcol,
	}

	r.handoff = &graphHandoff{graph: graph, store: store, pending: agg, onResult: onResult, metrics: reg}
	r.direct = &directHandoff{store: store, pending: agg, onResult: onResult, metrics: reg}

	var executionHandoff protocol.ExecutionHandoff = r.handoff
	var directHandoff protocol.DirectExecutionHandoff
	if cfg.ExecuteAtCommit {
		directHandoff = r.direct
	}

	if variant == process.DependencySet {
		r.Proto = protocol.NewDepSet(proc, tbl, transport, executionHandoff, directHandoff, gcol, reg, cfg.PhantomVotesEnabled, log)
	} else {
		r.Proto = protocol.NewBasic(proc, tbl, transport, executionHandoff, directHandoff, gcol, reg, log)
	}

	return r
}
