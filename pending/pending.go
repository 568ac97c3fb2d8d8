// Package pending implements the Pending Aggregator of spec §4.6: it turns
// the partial (rifl, key, prior-value) results the executor emits one key
// at a time into client-visible CommandResults, in either partial or
// aggregated mode. Grounded directly on original_source's
// src/executor/pending.rs (Pending::register / add_partial).
package pending

import (
	"errors"
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// ErrAlreadyRegistered is returned by Register when a rifl is registered
// twice without being dropped in between — a protocol error per spec §4.6.
var ErrAlreadyRegistered = errors.New("pending: rifl already registered")

// Mode selects how partials are aggregated before being handed to the client.
type Mode int

const (
	// Partial mode forwards every partial to the client as-is and tracks
	// only an outstanding-key counter per rifl.
	Partial Mode = iota
	// Aggregated mode buffers partials into a single CommandResult and
	// emits it once, when complete.
	Aggregated
)

type entry struct {
	outstanding int
	result      proto.CommandResult
}

// Aggregator is the Pending Aggregator. Register, AddPartial and Pending all
// guard its state with an internal mutex, so it is safe to share across the
// worker(s) that feed it executor output.
type Aggregator struct {
	mode Mode

	mu      sync.Mutex
	entries map[proto.Rifl]*entry
}

func NewAggregator(mode Mode) *Aggregator {
	return &Aggregator{mode: mode, entries: make(map[proto.Rifl]*entry)}
}

// Register declares that keyCount partials are expected for rifl. Must be
// called before the executor starts emitting partials for it (normally right
// after a command is accepted into the local graph). Re-registering an
// already-registered rifl is a protocol error.
func (a *Aggregator) Register(rifl proto.Rifl, keyCount int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[rifl]; exists {
		return ErrAlreadyRegistered
	}
	a.entries[rifl] = &entry{
		outstanding: keyCount,
		result:      proto.NewCommandResult(rifl),
	}
	return nil
}

// AddPartial folds one executor partial in. It returns (result, true) when
// a CommandResult is ready to send to the client: in Partial mode that's
// every partial whose rifl is registered (until the counter reaches zero,
// when the entry is dropped); in Aggregated mode it's only the final,
// complete result.
//
// A partial for an unregistered rifl is silently dropped (spec §4.6 — it may
// belong to a client served by a different replica).
func (a *Aggregator) AddPartial(p proto.Partial) (proto.CommandResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[p.Rifl]
	if !ok {
		return proto.CommandResult{}, false
	}

	switch a.mode {
	case Partial:
		single := proto.NewCommandResult(p.Rifl)
		single.Prior[p.Key] = p
		e.outstanding--
		if e.outstanding <= 0 {
			delete(a.entries, p.Rifl)
		}
		return single, true
	default: // Aggregated
		e.result.Prior[p.Key] = p
		e.outstanding--
		if e.outstanding > 0 {
			return proto.CommandResult{}, false
		}
		result := e.result
		delete(a.entries, p.Rifl)
		return result, true
	}
}

// Pending reports how many rifls still have outstanding partials, used by
// tests and metrics.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
