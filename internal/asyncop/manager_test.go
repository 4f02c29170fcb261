package asyncop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerWaitRetiresOp(t *testing.T) {
	m := NewManager()
	op := m.New("a")
	op.SetReady()

	require.NoError(t, m.Wait("a"))
	require.ErrorContains(t, m.Wait("a"), "unknown op")
}

func TestManagerSyncWaitsAllAndReturnsFirstError(t *testing.T) {
	m := NewManager()

	opA := m.New("a")
	opA.SetReady()

	opB := m.New("b")
	cb := NewCompletion()
	opB.AddCompletion(cb)
	opB.SetReady()
	cb.Finish(errors.New("b failed"))

	err := m.Sync()
	assert.EqualError(t, err, "b failed")

	// Both ops are retired regardless of which one failed.
	assert.ErrorContains(t, m.Wait("a"), "unknown op")
	assert.ErrorContains(t, m.Wait("b"), "unknown op")
}
