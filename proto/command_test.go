package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandKeysSorted(t *testing.T) {
	cmd := NewCommand(NewRifl("c1", 1), map[string]Op{
		"zebra": Put([]byte("z")),
		"apple": Put([]byte("a")),
		"mango": Get(),
	})

	assert.Equal(t, []string{"apple", "mango", "zebra"}, cmd.Keys())
}

func TestCommandConflicts(t *testing.T) {
	a := NewCommand(NewRifl("c1", 1), map[string]Op{"x": Put(nil)})
	b := NewCommand(NewRifl("c1", 2), map[string]Op{"x": Get()})
	c := NewCommand(NewRifl("c1", 3), map[string]Op{"y": Get()})

	assert.True(t, a.Conflicts(b))
	assert.True(t, b.Conflicts(a))
	assert.False(t, a.Conflicts(c))

	empty := NewCommand(NewRifl("c1", 4), map[string]Op{})
	assert.False(t, a.Conflicts(empty))
}

func TestNewCommandResultStartsEmpty(t *testing.T) {
	r := NewCommandResult(NewRifl("c1", 1))
	assert.Empty(t, r.Prior)
}
