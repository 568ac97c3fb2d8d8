package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epochdb/epochdb/proto"
)

func TestMemoryExecutePutReturnsPriorValue(t *testing.T) {
	m := NewMemory()

	prior, found := m.Execute("a", proto.Put([]byte("1")))
	assert.False(t, found)
	assert.Nil(t, prior)

	prior, found = m.Execute("a", proto.Put([]byte("2")))
	assert.True(t, found)
	assert.Equal(t, []byte("1"), prior)

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

func TestMemoryExecuteGetNeverMutates(t *testing.T) {
	m := NewMemory()
	m.Execute("a", proto.Put([]byte("1")))

	prior, found := m.Execute("a", proto.Get())
	assert.True(t, found)
	assert.Equal(t, []byte("1"), prior)

	v, _ := m.Get("a")
	assert.Equal(t, []byte("1"), v) // unchanged by the read
}

func TestMemoryGetMissingKey(t *testing.T) {
	m := NewMemory()
	_, found := m.Get("missing")
	assert.False(t, found)
}
