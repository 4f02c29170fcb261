package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radosfs/striper/internal/executor"
	"github.com/radosfs/striper/internal/meta"
	"github.com/radosfs/striper/internal/store"
	"github.com/radosfs/striper/internal/storeerr"
	"github.com/radosfs/striper/internal/testenv"
)

func newStore(t *testing.T, base string) *meta.Store {
	t.Helper()
	srv := testenv.Start(t)
	objects := srv.ObjectStore(t, "stripes")
	kv := srv.KeyValue(t, "meta")
	pool := executor.New(2, 8)
	t.Cleanup(pool.Stop)

	adapter := store.NewNatsAdapter(objects, kv, pool)
	hexWidth := meta.HexWidth(1 << 40)
	return meta.New(adapter, base, hexWidth)
}

func TestGetSizeDefaultsToZero(t *testing.T) {
	s := newStore(t, "inode-1")
	size, err := s.GetSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), size)
}

func TestSetSizeIfBiggerIsMonotonic(t *testing.T) {
	s := newStore(t, "inode-1")
	ctx := context.Background()

	require.NoError(t, s.SetSizeIfBigger(ctx, 10))
	require.NoError(t, s.SetSizeIfBigger(ctx, 5)) // swallowed as no-op

	size, err := s.GetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), size)

	require.NoError(t, s.SetSizeIfBigger(ctx, 20))
	size, err = s.GetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), size)
}

func TestSetSizeCanShrink(t *testing.T) {
	s := newStore(t, "inode-1")
	ctx := context.Background()

	require.NoError(t, s.SetSizeIfBigger(ctx, 100))
	require.NoError(t, s.SetSize(ctx, 5))

	size, err := s.GetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), size)
}

func TestLastStripeIndexAndSize(t *testing.T) {
	s := newStore(t, "inode-1")
	ctx := context.Background()

	_, _, err := s.LastStripeIndexAndSize(ctx, 8)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)

	require.NoError(t, s.SetSize(ctx, 20))
	idx, size, err := s.LastStripeIndexAndSize(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), idx)
	assert.Equal(t, uint64(20), size)
}

func TestHexWidthOrdersLexicographically(t *testing.T) {
	width := meta.HexWidth(1 << 32)
	assert.Equal(t, 9, width) // 1<<32 == 0x100000000
}
