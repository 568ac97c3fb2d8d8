package executor

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// Vertex is one committed command sitting in the dependency graph, per
// spec §3 / §4.4: {dot, command, dependency-clock, tarjan_id, tarjan_low,
// on_stack}. tarjan_id == 0 means "never visited in the current traversal".
//
// Modeled as an arena entry (design note §9): the graph never holds cyclic
// pointers between vertices, only Dot keys into VertexIndex, so traversal
// and removal are both simple index operations.
type Vertex struct {
	mu sync.Mutex

	Dot     proto.Dot
	Command proto.Command
	Clock   proto.VClock

	id      int
	low     int
	onStack bool
}

func newVertex(dot proto.Dot, cmd proto.Command, clock proto.VClock) *Vertex {
	return &Vertex{Dot: dot, Command: cmd, Clock: clock}
}

// reset clears Tarjan bookkeeping, used when a traversal aborts and must
// rewind every vertex it touched (spec §4.4 finalization).
func (v *Vertex) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.id = 0
	v.low = 0
	v.onStack = false
}

// VertexIndex maps Dot to a shared, interior-mutable Vertex reference.
// Lookups must be concurrent-safe (spec §5): one worker owns traversal
// (Add/RequestReply) and another owns Request, both reading/writing through
// this index concurrently.
type VertexIndex struct {
	mu    sync.RWMutex
	byDot map[proto.Dot]*Vertex
}

func NewVertexIndex() *VertexIndex {
	return &VertexIndex{byDot: make(map[proto.Dot]*Vertex)}
}

// Find returns the vertex for dot, or nil if absent.
func (idx *VertexIndex) Find(dot proto.Dot) *Vertex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byDot[dot]
}

// Insert adds a brand new vertex for dot. Re-inserting an existing dot is a
// protocol violation (spec §3 invariant: a dot is inserted exactly once).
func (idx *VertexIndex) Insert(dot proto.Dot, cmd proto.Command, clock proto.VClock) (*Vertex, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.byDot[dot]; exists {
		return nil, &ProtocolViolationError{Reason: "dot " + dot.String() + " inserted into vertex index twice"}
	}
	v := newVertex(dot, cmd, clock)
	idx.byDot[dot] = v
	return v, nil
}

// Remove drops dot from the index. Graph calls it exactly once per dot,
// when the dot's SCC is emitted; GC does not remove vertices.
func (idx *VertexIndex) Remove(dot proto.Dot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byDot, dot)
}

// Len reports the number of pending vertices, used by tests and metrics.
func (idx *VertexIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byDot)
}
