package inline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWithinCapacity(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 16)

	n := b.Write(0, []byte("hi"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("hi"), b.Read(0, 2))

	stored, ok := binding.GetInlineValue("inode-1")
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), stored)
}

func TestWriteOverrunZeroFillsRemainder(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 8)

	n := b.Write(4, []byte("ABCDEF")) // ends at 10, past capacity 8
	assert.Equal(t, 4, n)             // only 4 bytes (offset 4..8) fit
	assert.Equal(t, 8, b.Len())
	assert.Equal(t, []byte{0, 0, 0, 0, 'A', 'B', 'C', 'D'}, b.Read(0, 8))
}

func TestFillRemainingPastCapacity(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 16)
	b.Write(0, []byte("hi"))

	b.FillRemaining()
	assert.Equal(t, 16, b.Len())
	assert.Equal(t, []byte("hi"), b.Read(0, 2))
	assert.Equal(t, make([]byte, 14), b.Read(2, 14))
}

func TestTruncateShrinkAndGrow(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 16)
	b.Write(0, []byte("hello world"))

	b.Truncate(5)
	assert.Equal(t, []byte("hello"), b.Read(0, 5))

	b.Truncate(8)
	assert.Equal(t, []byte{'h', 'e', 'l', 'l', 'o', 0, 0, 0}, b.Read(0, 8))
}

func TestTruncateAtOrAboveCapacityDrainsForMigration(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 8)
	b.Write(0, []byte("hello"))

	drained := b.Truncate(8)
	assert.Equal(t, []byte("hello"), drained)
	assert.Equal(t, 0, b.Len())
}

func TestTruncateAtOrAboveCapacityWithNoDataDrainsNothing(t *testing.T) {
	binding := NewMemoryBinding()
	b := New(binding, "inode-1", 8)

	drained := b.Truncate(20)
	assert.Nil(t, drained)
	assert.Equal(t, 0, b.Len())
}

func TestNewLoadsExistingValue(t *testing.T) {
	binding := NewMemoryBinding()
	binding.SetInlineValue("inode-1", []byte("preexisting"))

	b := New(binding, "inode-1", 16)
	assert.Equal(t, []byte("preexisting"), b.Read(0, 11))
}
