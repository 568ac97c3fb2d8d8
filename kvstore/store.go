// Package kvstore implements the minimal, deterministic key-value apply-op
// interface consumed by the executor (spec §4.5 / §6) plus an in-memory
// reference implementation. No I/O, no persistence: this is the in-memory
// execution target for the core ordering protocol, grounded on
// teacher_src/store/store.go's Store interface, narrowed to the spec's
// execute(key, op) contract.
package kvstore

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// Store is the interface the executor applies committed ops against.
type Store interface {
	// Execute applies op to key and returns the value that was present
	// immediately before the op took effect. Deterministic, total, no I/O.
	Execute(key string, op proto.Op) (prior []byte, found bool)

	// Get is a read-only convenience accessor used by tests and the CLI; it
	// does not go through the ordering protocol.
	Get(key string) (value []byte, found bool)
}

// Memory is an in-memory Store backed by a single mutex-guarded map. Good
// enough for the simulation harness and for tests; durability is explicitly
// out of scope (spec §1 non-goals).
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Execute(key string, op proto.Op) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior, found := m.data[key]
	switch op.Kind {
	case proto.OpGet:
		// reads never mutate; "prior" and "current" coincide
	case proto.OpPut:
		m.data[key] = op.Value
	}
	return prior, found
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}
