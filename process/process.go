// Package process implements the Base Process of spec §4.1: identity,
// cluster view, quorum sizes, the monotone dot generator and stability
// bookkeeping. Grounded on teacher_src/cluster/cluster.go's ClusterInfo
// (peer discovery, node id) and teacher_src/topology/datacenter.go (peer/
// shard view shape).
package process

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/proto"
)

// Variant picks the quorum-size rule of spec §4.1: Basic uses f+1 for its
// fast quorum, the dependency-set variant uses 2f.
type Variant int

const (
	Basic Variant = iota
	DependencySet
)

// Process is the Base Process: one replica's identity and static view of
// the cluster, plus the dot generator and stability counter.
type Process struct {
	log zerolog.Logger

	id      proto.ProcessId
	shardID proto.ShardId
	variant Variant
	n       int
	f       int

	mu    sync.RWMutex
	peers []proto.ProcessId // distance-sorted, excludes self
	ready bool

	seq uint64 // next_dot's per-process counter, CAS'd

	stableCount prometheus.Counter
}

// Config is the static configuration a Process is built from.
type Config struct {
	ID      proto.ProcessId
	ShardID proto.ShardId
	Variant Variant
	N       int
	F       int
}

func New(cfg Config, log zerolog.Logger, reg prometheus.Registerer) *Process {
	p := &Process{
		log:     log.With().Uint64("pid", uint64(cfg.ID)).Logger(),
		id:      cfg.ID,
		shardID: cfg.ShardID,
		variant: cfg.Variant,
		n:       cfg.N,
		f:       cfg.F,
	}
	p.stableCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "epochdb_process_stable_dots_total",
		Help: "Number of dots this process has declared stable and reclaimed.",
		ConstLabels: prometheus.Labels{
			"pid": fmt.Sprintf("%d", cfg.ID),
		},
	})
	if reg != nil {
		reg.MustRegister(p.stableCount)
	}
	return p
}

func (p *Process) ID() proto.ProcessId    { return p.id }
func (p *Process) ShardID() proto.ShardId { return p.shardID }
func (p *Process) Variant() Variant       { return p.variant }

// F returns the configured fault-tolerance bound, e.g. for the dependency-set
// fast-path check "proposed by at least f members" (spec §4.3).
func (p *Process) F() int { return p.f }

// NextDot atomically advances and returns the local sequence counter,
// producing a fresh, globally unique Dot (spec §3, §4.1).
func (p *Process) NextDot() proto.Dot {
	seq := atomic.AddUint64(&p.seq, 1)
	return proto.NewDot(p.id, seq)
}

// Discover accepts a distance-sorted peer list (excluding self); idempotent.
// Returns whether this is the first call that brought the known peer count
// up to n-1 (i.e. the full cluster is now known), per spec §4.1.
func (p *Process) Discover(peers []proto.ProcessId) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sorted := make([]proto.ProcessId, len(peers))
	copy(sorted, peers)
	p.peers = sorted

	wasReady := p.ready
	p.ready = len(p.peers) >= p.n-1
	first := p.ready && !wasReady
	if first {
		p.log.Info().Int("peers", len(p.peers)).Msg("cluster fully discovered")
	}
	return first
}

// FastQuorum returns the external peers a coordinator must contact: the
// first q-1 peers (after self), where q is the total fast quorum size
// (FastQuorumSize) and the coordinator's own implicit vote already counts as
// one of the q (spec §4.1, §4.3; teacher's scope_accept.go counts the local
// node as the first response before counting replicas toward quorumSize the
// same way).
func (p *Process) FastQuorum() []proto.ProcessId {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q := p.fastQuorumSizeLocked() - 1
	if q < 0 {
		q = 0
	}
	if q > len(p.peers) {
		q = len(p.peers)
	}
	out := make([]proto.ProcessId, q)
	copy(out, p.peers[:q])
	return out
}

// FastQuorumSize returns the total fast quorum size, including the
// coordinator's own implicit vote: f+1 for Basic, 2f for DependencySet
// (spec §4.1, §4.3).
func (p *Process) FastQuorumSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fastQuorumSizeLocked()
}

func (p *Process) fastQuorumSizeLocked() int {
	if p.variant == DependencySet {
		return 2 * p.f
	}
	return p.f + 1
}

// All returns every replica, including self.
func (p *Process) All() []proto.ProcessId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]proto.ProcessId, 0, len(p.peers)+1)
	out = append(out, p.id)
	out = append(out, p.peers...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllButMe returns every other replica.
func (p *Process) AllButMe() []proto.ProcessId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]proto.ProcessId, len(p.peers))
	copy(out, p.peers)
	return out
}

// Stable records that count dots became stable, for the stability metric
// described in spec §4.1.
func (p *Process) Stable(count int) {
	if count <= 0 {
		return
	}
	if p.stableCount != nil {
		p.stableCount.Add(float64(count))
	}
	p.log.Debug().Int("count", count).Msg("dots became stable")
}
