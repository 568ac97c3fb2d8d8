package executor

import (
	"sort"

	"github.com/epochdb/epochdb/proto"
)

// SCCMember is one command within an emitted SCC.
type SCCMember struct {
	Dot     proto.Dot
	Command proto.Command
}

// SCC is a strongly connected component of the dependency graph: a set of
// mutually dependent commands, always emitted ordered by Dot (spec §4.4).
type SCC []SCCMember

// finderResult tags the outcome of one strongConnect invocation.
type finderResult struct {
	found   bool
	missing *proto.Dot
}

func foundResult() finderResult           { return finderResult{found: true} }
func notFoundResult() finderResult        { return finderResult{found: false} }
func missingResult(d proto.Dot) finderResult { return finderResult{missing: &d} }

func (r finderResult) isMissing() bool { return r.missing != nil }

// Finder is the reusable incremental Tarjan traversal state of spec §4.4:
// {id_counter, stack, emitted_sccs}. Grounded line-for-line on
// fantoch_ps/src/executor/graph/tarjan.rs's TarjanSCCFinder, translated from
// parking_lot::RwLock-guarded Vertex cells to per-Vertex sync.Mutex.
//
// The traversal itself is single-threaded within one executor worker; the
// per-vertex lock exists only to synchronize with a concurrent Request
// worker mutating the same VertexIndex (spec §5, §9 design note).
type Finder struct {
	transitiveConflicts bool
	idCounter           int
	stack               []proto.Dot
	visitedThisRun      []proto.Dot
	sccs                []SCC
}

func NewFinder(transitiveConflicts bool) *Finder {
	return &Finder{transitiveConflicts: transitiveConflicts}
}

// SCCs drains and returns the SCCs found so far.
func (f *Finder) SCCs() []SCC {
	out := f.sccs
	f.sccs = nil
	return out
}

// strongConnect tries to find an SCC rooted at dot. It returns foundResult
// when dot's SCC (possibly itself alone) was emitted, notFoundResult when
// dot is part of a larger SCC still being assembled higher up the call
// stack, or missingResult(d) when dependency d is not yet locally known —
// in which case the caller MUST call rewind to undo all partial state.
func (f *Finder) strongConnect(dot proto.Dot, vref *Vertex, executed *ExecutedClock, index *VertexIndex) finderResult {
	f.idCounter++

	vref.mu.Lock()
	vref.id = f.idCounter
	vref.low = f.idCounter
	vref.onStack = true
	clock := vref.Clock
	vref.mu.Unlock()

	f.stack = append(f.stack, dot)
	f.visitedThisRun = append(f.visitedThisRun, dot)

	result := foundResult()

	clock.Iter(func(pid proto.ProcessId, to uint64) {
		if result.isMissing() {
			return
		}

		if to == 0 {
			return
		}
		from := uint64(1)
		if f.transitiveConflicts {
			from = to
		} else if executed.Frontier(pid)+1 > from {
			from = executed.Frontier(pid) + 1
		}
		if from > to {
			return
		}

		// high-to-low: give up faster when we can't assume transitivity.
		// from is always >= 1 here (sequences start at 1), so dep never
		// underflows past the loop bound.
		for dep := to; dep >= from; dep-- {
			if executed.Contains(pid, dep) {
				continue
			}

			depDot := proto.NewDot(pid, dep)
			if depDot == dot {
				continue
			}

			depVertex := index.Find(depDot)
			if depVertex == nil {
				result = missingResult(depDot)
				return
			}

			depVertex.mu.Lock()
			if !f.transitiveConflicts {
				vref.mu.Lock()
				conflicts := vref.Command.Conflicts(depVertex.Command)
				vref.mu.Unlock()
				if !conflicts {
					depVertex.mu.Unlock()
					continue
				}
			}

			if depVertex.id == 0 {
				depVertex.mu.Unlock()

				sub := f.strongConnect(depDot, depVertex, executed, index)
				if sub.isMissing() {
					result = sub
					return
				}

				depVertex.mu.Lock()
				depLow := depVertex.low
				depVertex.mu.Unlock()

				vref.mu.Lock()
				if depLow < vref.low {
					vref.low = depLow
				}
				vref.mu.Unlock()
			} else {
				depID, depOnStack := depVertex.id, depVertex.onStack
				depVertex.mu.Unlock()
				if depOnStack {
					vref.mu.Lock()
					if depID < vref.low {
						vref.low = depID
					}
					vref.mu.Unlock()
				}
			}
		}
	})

	if result.isMissing() {
		return result
	}

	vref.mu.Lock()
	isRoot := vref.id == vref.low
	vref.mu.Unlock()

	if !isRoot {
		return notFoundResult()
	}

	var scc SCC
	for {
		n := len(f.stack)
		member := f.stack[n-1]
		f.stack = f.stack[:n-1]

		memberVertex := index.Find(member)
		if memberVertex == nil {
			panic("strongConnect: stack member " + member.String() + " missing from index")
		}
		memberVertex.mu.Lock()
		memberVertex.onStack = false
		cmd := memberVertex.Command
		memberVertex.mu.Unlock()

		scc = append(scc, SCCMember{Dot: member, Command: cmd})

		if !executed.Add(member.Source, member.Sequence) {
			panic("strongConnect: dot " + member.String() + " already executed")
		}

		if member == dot {
			break
		}
	}

	sort.Slice(scc, func(i, j int) bool { return scc[i].Dot.Less(scc[j].Dot) })
	f.sccs = append(f.sccs, scc)
	return foundResult()
}

// rewind undoes all Tarjan bookkeeping touched during an aborted traversal
// (spec §4.4 finalization): every visited vertex gets id/low/on_stack reset
// and the stack (which may include the aborted vertices) is cleared of this
// run's contribution. Vertex entries stay in the index — they remain
// pending.
func (f *Finder) rewind(index *VertexIndex) {
	for _, d := range f.visitedThisRun {
		if v := index.Find(d); v != nil {
			v.reset()
		}
	}
	f.visitedThisRun = nil
	// a completed SCC pops its own members as it's assembled, so anything
	// still on the stack belongs to this aborted traversal.
	f.stack = nil
	f.idCounter = 0
}
