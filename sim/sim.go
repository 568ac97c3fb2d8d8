// Package sim is the Simulation Harness of spec §1/§4: it connects
// process.Process-backed replicas without a network, dispatching every
// message in-process on its own goroutine (never the sender's) so
// Submit's blocking wait for commit can never deadlock against its own
// fan-out. Used by tests and `cmd/epochd sim`.
package sim

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/config"
	"github.com/epochdb/epochdb/executor"
	"github.com/epochdb/epochdb/internal/metrics"
	"github.com/epochdb/epochdb/protocol"
	"github.com/epochdb/epochdb/proto"
)

// Simulation owns a fixed set of replicas and the in-process transport
// linking them.
type Simulation struct {
	log zerolog.Logger

	mu       sync.RWMutex
	replicas map[proto.ProcessId]*Replica

	resultsMu sync.Mutex
	results   []proto.CommandResult

	metrics *metrics.Registry
}

// New builds a Simulation with one replica per id in ids, all sharing cfg
// (n/f/variant/shard layout). The process ids double as shard-local indices;
// callers wanting multiple shards should give each replica its own
// cfg.ShardID before calling New per shard and wiring shardOf accordingly —
// the single-shard case (cfg.ShardCount == 1) is what New wires directly.
func New(cfg config.Config, ids []proto.ProcessId, reg *metrics.Registry, log zerolog.Logger) *Simulation {
	s := &Simulation{
		log:      log.With().Str("component", "sim").Logger(),
		replicas: make(map[proto.ProcessId]*Replica, len(ids)),
		metrics:  reg,
	}

	for _, id := range ids {
		r := newReplica(cfg, id, &simTransport{sim: s, from: id}, &simBroadcaster{sim: s, from: id}, s.deliver, reg, log)
		s.replicas[id] = r
	}

	peers := make([]proto.ProcessId, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, id)
	}
	for _, r := range s.replicas {
		others := make([]proto.ProcessId, 0, len(ids)-1)
		for _, id := range peers {
			if id != r.ID {
				others = append(others, id)
			}
		}
		r.Process.Discover(others)
	}

	return s
}

func (s *Simulation) deliver(result proto.CommandResult) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	s.results = append(s.results, result)
}

// Results drains every CommandResult delivered to any replica's client since
// the last call.
func (s *Simulation) Results() []proto.CommandResult {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	out := s.results
	s.results = nil
	return out
}

func (s *Simulation) replica(id proto.ProcessId) *Replica {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replicas[id]
}

// Submit drives a client command through replica coordinator's Submit entry
// point, blocking until it locally commits (spec §4.3 handle_submit).
func (s *Simulation) Submit(coordinator proto.ProcessId, cmd proto.Command) (proto.Dot, error) {
	r := s.replica(coordinator)
	return r.Proto.Submit(cmd)
}

// Get reads replica's local KV store directly, bypassing the protocol —
// used by tests to assert post-execution state (spec §8 scenarios).
func (s *Simulation) Get(replica proto.ProcessId, key string) ([]byte, bool) {
	return s.replica(replica).Store.Get(key)
}

// Tick runs one GC round on every replica (spec §4.7) and drains every
// replica's pending cross-shard executor requests (spec §4.4). In the
// single-shard topology New builds, cross-shard requests never fire (every
// dependency is local), but Tick still drives them for forward-compatibility
// with a multi-shard Simulation assembled by hand.
func (s *Simulation) Tick() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.replicas {
		r.GC.Tick()
	}
	for _, r := range s.replicas {
		for _, req := range r.Graph.Requests() {
			s.routeRequest(r, req)
		}
	}
}

func (s *Simulation) routeRequest(from *Replica, req executor.Request) {
	for _, r := range s.replicas {
		if r.ID == from.ID {
			continue
		}
		infos := r.Graph.HandleRequest(req)
		if len(infos) == 0 {
			continue
		}
		from.handoff.requestReply(infos)
	}
}

// simTransport implements protocol.Transport by dispatching each Send on a
// fresh goroutine directly into the target replica's Handle* method, per the
// message's concrete type.
type simTransport struct {
	sim  *Simulation
	from proto.ProcessId
}

func (t *simTransport) Send(to proto.ProcessId, msg interface{}) {
	go t.sim.dispatch(t.from, to, msg)
}

func (s *Simulation) dispatch(from, to proto.ProcessId, msg interface{}) {
	r := s.replica(to)
	if r == nil {
		return
	}

	switch m := msg.(type) {
	case protocol.StoreMsg:
		basic(r).HandleStore(from, m.Dot, m.Command)
	case protocol.StoreAckMsg:
		basic(r).HandleStoreAck(m.Dot)
	case protocol.CommitMsg:
		switch p := r.Proto.(type) {
		case *protocol.Basic:
			if err := p.HandleCommit(m.Dot, m.Command); err != nil {
				s.log.Debug().Err(err).Stringer("dot", m.Dot).Msg("commit redelivery ignored")
			}
		case *protocol.DepSet:
			if err := p.HandleCommit(m.Dot, m.Command, m.Clock, m.Votes); err != nil {
				s.log.Debug().Err(err).Stringer("dot", m.Dot).Msg("commit redelivery ignored")
			}
		}
	case protocol.CommitDotMsg:
		basic(r).HandleCommitDot(m.Dot)
	case protocol.CollectMsg:
		depset(r).HandleCollect(from, m.Dot, m.Command, m.ProposedClock)
	case protocol.CollectAckMsg:
		if err := depset(r).HandleCollectAck(from, m.Dot, m.Clock, m.Votes); err != nil {
			s.log.Error().Err(err).Stringer("dot", m.Dot).Msg("collect ack handling failed")
		}
	case protocol.PhantomMsg:
		depset(r).HandlePhantom(m.Votes)
	case protocol.GarbageCollectionMsg:
		r.Proto.HandleGarbageCollection(from, m.Committed)
	case protocol.StableMsg:
		stable := proto.NewVClock(nil)
		for _, sr := range m.Stable {
			stable.Add(sr.Process, sr.High)
		}
		r.Proto.HandleStable(stable)
	default:
		s.log.Warn().Str("type", "unknown").Msg("dropping unrecognized message type")
	}
}

func basic(r *Replica) *protocol.Basic   { return r.Proto.(*protocol.Basic) }
func depset(r *Replica) *protocol.DepSet { return r.Proto.(*protocol.DepSet) }

// simBroadcaster implements gc.Broadcaster by sending GarbageCollectionMsg to
// every other replica via the same transport.
type simBroadcaster struct {
	sim  *Simulation
	from proto.ProcessId
}

func (b *simBroadcaster) BroadcastGarbageCollection(committed proto.VClock) {
	b.sim.mu.RLock()
	defer b.sim.mu.RUnlock()
	for id := range b.sim.replicas {
		if id == b.from {
			continue
		}
		go b.sim.dispatch(b.from, id, protocol.GarbageCollectionMsg{Committed: committed})
	}
}
