package sim

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epochdb/epochdb/config"
	"github.com/epochdb/epochdb/proto"
)

func newTestSimulation(t *testing.T, variant config.Variant) *Simulation {
	t.Helper()
	cfg := config.Default()
	cfg.N = 3
	cfg.F = 1
	cfg.Variant = variant
	ids := []proto.ProcessId{1, 2, 3}
	return New(cfg, ids, nil, zerolog.Nop())
}

func putCmd(client string, seq uint64, key, value string) proto.Command {
	return proto.NewCommand(proto.NewRifl(proto.ClientId(client), seq), map[string]proto.Op{
		key: proto.Put([]byte(value)),
	})
}

// TestBasicHappyPath matches spec scenario S1: a single Put on the basic
// variant commits at every replica and yields the expected prior value.
func TestBasicHappyPath(t *testing.T) {
	s := newTestSimulation(t, config.VariantBasic)

	dot, err := s.Submit(1, putCmd("c1", 1, "A", "foo"))
	require.NoError(t, err)
	assert.Equal(t, proto.ProcessId(1), dot.Source)

	value, found := s.Get(1, "A")
	assert.True(t, found)
	assert.Equal(t, []byte("foo"), value)

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, proto.NewRifl("c1", 1), results[0].Rifl)
	partial := results[0].Prior["A"]
	assert.False(t, partial.Found) // no prior value existed
}

// TestDepSetHappyPath is the same scenario on the dependency-set variant:
// with no conflicting traffic, the fast path must always succeed.
func TestDepSetHappyPath(t *testing.T) {
	s := newTestSimulation(t, config.VariantDepSet)

	_, err := s.Submit(1, putCmd("c1", 1, "A", "foo"))
	require.NoError(t, err)

	value, found := s.Get(1, "A")
	assert.True(t, found)
	assert.Equal(t, []byte("foo"), value)

	require.Len(t, s.Results(), 1)
}

// TestDepSetConflictingCommandsCommitInSameOrderEverywhere matches S2: two
// conflicting commands submitted at different coordinators must leave every
// replica agreeing on the same final value for the shared key.
func TestDepSetConflictingCommandsCommitInSameOrderEverywhere(t *testing.T) {
	s := newTestSimulation(t, config.VariantDepSet)

	_, err1 := s.Submit(1, putCmd("c1", 1, "A", "x"))
	require.NoError(t, err1)
	_, err2 := s.Submit(2, putCmd("c2", 1, "A", "y"))
	require.NoError(t, err2)

	v1, _ := s.Get(1, "A")
	v2, _ := s.Get(2, "A")
	v3, _ := s.Get(3, "A")
	assert.Equal(t, v1, v2)
	assert.Equal(t, v2, v3)
}

// TestExecuteAtCommitBypassesGraph exercises the SPEC_FULL.md-supplemented
// execute_at_commit baseline: no SCC ever needs to be emitted for a result
// to arrive.
func TestExecuteAtCommitBypassesGraph(t *testing.T) {
	cfg := config.Default()
	cfg.N = 3
	cfg.F = 1
	cfg.Variant = config.VariantBasic
	cfg.ExecuteAtCommit = true
	ids := []proto.ProcessId{1, 2, 3}
	s := New(cfg, ids, nil, zerolog.Nop())

	_, err := s.Submit(1, putCmd("c1", 1, "A", "foo"))
	require.NoError(t, err)

	value, found := s.Get(1, "A")
	assert.True(t, found)
	assert.Equal(t, []byte("foo"), value)
	assert.Equal(t, 0, s.replica(1).Graph.Index().Len())
}

// TestGCTickReclaimsStableDots exercises §4.7 end to end through the
// simulation's transport, not just the gc package in isolation.
func TestGCTickReclaimsStableDots(t *testing.T) {
	s := newTestSimulation(t, config.VariantBasic)

	dot, err := s.Submit(1, putCmd("c1", 1, "A", "foo"))
	require.NoError(t, err)

	// Several rounds: each Tick both broadcasts this replica's committed
	// clock and applies what it has already heard, so the min needs a
	// couple of rounds to converge across all three replicas.
	for i := 0; i < 3; i++ {
		s.Tick()
	}

	assert.False(t, s.replica(1).Table.Contains(dot))
}
