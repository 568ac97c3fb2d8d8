package executor

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/epochdb/epochdb/proto"
)

// ShardOf maps a process id to the shard it belongs to, used to route
// cross-shard dependency requests (spec §4.4).
type ShardOf func(proto.ProcessId) proto.ShardId

// RequestReplyInfo is one (dot, command, dep-clock) triple carried in a
// RequestReply message (spec §6).
type RequestReplyInfo struct {
	Dot     proto.Dot
	Command proto.Command
	Clock   proto.VClock
}

// Request is an executor-to-executor cross-shard fetch: "send me everything
// you know about these dots" (spec §4.4). TraceID correlates the request with
// its eventual RequestReply across logs on both shards.
type Request struct {
	FromShard proto.ShardId
	Dots      []proto.Dot
	TraceID   uuid.UUID
}

// Graph is the Dependency Graph Executor of spec §4.4: it ingests committed
// (dot, command, dependency-clock) triples, runs on-demand Tarjan SCC
// discovery, and emits ready SCCs in deterministic order. Grounded on
// fantoch_ps/src/executor/graph/executor.rs's GraphExecutor, adapted to
// Go's explicit-call style instead of a polled `to_clients`/`to_executors`
// drain: callers read the same information off Add's return value and the
// Requests()/RequestReplies() drains.
type Graph struct {
	log zerolog.Logger

	localShard          proto.ShardId
	shardOf             ShardOf
	transitiveConflicts bool

	index    *VertexIndex
	executed *ExecutedClock
	finder   *Finder

	mu      sync.Mutex
	roots   []proto.Dot
	pending map[proto.ShardId]map[proto.Dot]struct{}

	// stalledLocal holds roots that aborted with a MissingDependency, whether
	// the missing dot is local or on another shard: each is retried the next
	// time Add runs (including the Adds RequestReply makes), on the chance
	// the missing dot has since arrived.
	stalledLocal []proto.Dot

	dedup singleflight.Group

	metrics *GraphMetrics
}

// Config configures the graph executor's invariants, per spec §6/§9.
type Config struct {
	LocalShard          proto.ShardId
	ShardOf             ShardOf
	TransitiveConflicts bool
}

func NewGraph(cfg Config, log zerolog.Logger, metrics *GraphMetrics) *Graph {
	if cfg.ShardOf == nil {
		cfg.ShardOf = func(proto.ProcessId) proto.ShardId { return cfg.LocalShard }
	}
	return &Graph{
		log:                 log.With().Str("component", "executor").Logger(),
		localShard:          cfg.LocalShard,
		shardOf:             cfg.ShardOf,
		transitiveConflicts: cfg.TransitiveConflicts,
		index:               NewVertexIndex(),
		executed:            NewExecutedClock(),
		finder:              NewFinder(cfg.TransitiveConflicts),
		pending:             make(map[proto.ShardId]map[proto.Dot]struct{}),
		metrics:             metrics,
	}
}

// Index exposes the vertex index for the Request-side worker (spec §5: the
// executor uses at most two workers, sharing this index).
func (g *Graph) Index() *VertexIndex { return g.index }

// ExecutedClock exposes the executed clock, e.g. for GC or diagnostics.
func (g *Graph) ExecutedClock() *ExecutedClock { return g.executed }

// Add ingests a freshly committed command, runs discovery from it (and from
// any previously stalled root it might unblock), and returns every SCC that
// became ready to execute, in deterministic emission order (spec §4.4).
func (g *Graph) Add(dot proto.Dot, cmd proto.Command, clock proto.VClock) []SCC {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.executed.ContainsDot(dot) {
		// late duplicate: already executed, ignore (spec §4.4 step 1)
		g.log.Debug().Stringer("dot", dot).Msg("ignoring late duplicate add")
		return nil
	}

	if _, err := g.index.Insert(dot, cmd, clock); err != nil {
		// Not reachable via message redelivery: HandleCommit's status guard
		// (spec §7) already turns a redelivered Commit for a dot the graph
		// has already seen into a stale-message no-op before it ever calls
		// Add again. Reaching here means a dot was added twice while still
		// pending execution, which is the ProtocolViolationError's own
		// documented contract: fatal, not retryable.
		g.log.Error().Err(err).Stringer("dot", dot).Msg("duplicate vertex insert")
		panic(err)
	}

	g.roots = append(g.roots, dot)
	if len(g.stalledLocal) > 0 {
		g.roots = append(g.roots, g.stalledLocal...)
		g.stalledLocal = nil
	}
	return g.drainRootsLocked()
}

// drainRootsLocked runs strong_connect from every candidate root in
// insertion order (spec §9 fairness: late roots aren't starved because each
// root either completes or aborts with MissingDependency, and roots are
// processed FIFO). Must be called with g.mu held.
func (g *Graph) drainRootsLocked() []SCC {
	var out []SCC

	i := 0
	for i < len(g.roots) {
		root := g.roots[i]
		vertex := g.index.Find(root)
		if vertex == nil {
			// already consumed as part of an earlier SCC in this drain
			i++
			continue
		}
		vertex.mu.Lock()
		alreadyVisited := vertex.id != 0
		vertex.mu.Unlock()
		if alreadyVisited {
			i++
			continue
		}

		result := g.finder.strongConnect(root, vertex, g.executed, g.index)
		if result.isMissing() {
			missing := *result.missing
			g.finder.rewind(g.index)
			g.recordPendingLocked(missing)
			g.stalledLocal = append(g.stalledLocal, root)
			g.log.Debug().Stringer("root", root).Stringer("missing", missing).Msg("traversal aborted")
			i++
			continue
		}

		for _, scc := range g.finder.SCCs() {
			for _, m := range scc {
				g.index.Remove(m.Dot)
			}
			if g.metrics != nil {
				g.metrics.observeSCC(len(scc))
			}
			out = append(out, scc)
		}
		i++
	}

	// roots fully consumed (found) are dropped for good; roots stuck on a
	// missing dependency wait in g.stalledLocal for the next Add to retry
	// them, and a cross-shard missing dot also waits in g.pending for a
	// Requests()/RequestReply round-trip.
	g.roots = nil
	return out
}

// recordPendingLocked records missing as a cross-shard fetch target, unless
// it belongs to the local shard (in which case it simply hasn't been
// locally Add-ed yet). Returns true when missing was local.
func (g *Graph) recordPendingLocked(missing proto.Dot) bool {
	shard := g.shardOf(missing.Source)
	if shard == g.localShard {
		return true
	}
	set, ok := g.pending[shard]
	if !ok {
		set = make(map[proto.Dot]struct{})
		g.pending[shard] = set
	}
	set[missing] = struct{}{}
	if g.metrics != nil {
		g.metrics.incMissingDependency()
	}
	return false
}

// Requests drains PendingRequests, returning the cross-shard fetches to
// send as Request{from_shard, dots} messages (spec §4.4). Concurrent callers
// (e.g. the Add worker and a cleanup tick both noticing pending fetches)
// collapse into a single drain via singleflight, so the same batch of dots
// never goes out in two Request messages.
func (g *Graph) Requests() []Request {
	v, _, _ := g.dedup.Do("drain", func() (interface{}, error) {
		g.mu.Lock()
		defer g.mu.Unlock()

		out := make([]Request, 0, len(g.pending))
		for shard, dots := range g.pending {
			list := make([]proto.Dot, 0, len(dots))
			for d := range dots {
				list = append(list, d)
			}
			traceID := uuid.New()
			g.log.Debug().Stringer("trace", traceID).Int("shard", int(shard)).Int("dots", len(list)).Msg("requesting cross-shard dependencies")
			out = append(out, Request{FromShard: g.localShard, Dots: list, TraceID: traceID})
		}
		g.pending = make(map[proto.ShardId]map[proto.Dot]struct{})
		return out, nil
	})
	return v.([]Request)
}

// RequestReply applies the infos carried by a cross-shard reply (each is
// just another Add) and re-runs discovery, which may now resolve roots that
// previously aborted with MissingDependency.
func (g *Graph) RequestReply(infos []RequestReplyInfo) []SCC {
	var out []SCC
	for _, info := range infos {
		out = append(out, g.Add(info.Dot, info.Command, info.Clock)...)
	}
	return out
}

// HandleRequest answers a Request from another shard's executor with every
// vertex this replica currently has for the requested dots (committed but
// maybe not yet executed), per spec §4.4.
func (g *Graph) HandleRequest(req Request) []RequestReplyInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.log.Debug().Stringer("trace", req.TraceID).Int("shard", int(req.FromShard)).Int("dots", len(req.Dots)).Msg("answering cross-shard dependency request")

	out := make([]RequestReplyInfo, 0, len(req.Dots))
	for _, d := range req.Dots {
		v := g.index.Find(d)
		if v == nil {
			continue
		}
		v.mu.Lock()
		out = append(out, RequestReplyInfo{Dot: v.Dot, Command: v.Command, Clock: v.Clock})
		v.mu.Unlock()
	}
	return out
}
