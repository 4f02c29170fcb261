package asyncop

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionFinishIdempotent(t *testing.T) {
	c := NewCompletion()
	c.Finish(errors.New("first"))
	c.Finish(errors.New("second"))
	require.EqualError(t, c.Wait(), "first")
}

func TestOpWaitBlocksUntilReady(t *testing.T) {
	op := newOp("op-1")
	c := NewCompletion()
	op.AddCompletion(c)

	done := make(chan error, 1)
	go func() { done <- op.Wait() }()

	select {
	case <-done:
		t.Fatal("Wait returned before SetReady")
	case <-time.After(50 * time.Millisecond):
	}

	op.SetReady()
	c.Finish(nil)

	require.NoError(t, <-done)
}

func TestOpWaitReturnsFirstError(t *testing.T) {
	op := newOp("op-2")
	c1, c2 := NewCompletion(), NewCompletion()
	op.AddCompletion(c1)
	op.AddCompletion(c2)
	op.SetReady()

	c1.Finish(nil)
	c2.Finish(errors.New("boom"))

	assert.EqualError(t, op.Wait(), "boom")
}

func TestOpSetReadyIdempotent(t *testing.T) {
	op := newOp("op-3")
	op.SetReady()
	op.SetReady()
	require.NoError(t, op.Wait())
}
