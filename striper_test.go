package striper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/inovacc/utils/v2/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	striper "github.com/radosfs/striper"
	"github.com/radosfs/striper/internal/executor"
	"github.com/radosfs/striper/internal/inline"
	"github.com/radosfs/striper/internal/store"
	"github.com/radosfs/striper/internal/storeerr"
	"github.com/radosfs/striper/internal/testenv"
)

func newEngine(t *testing.T, stripeSize uint64, inlineCapacity int) *striper.Engine {
	t.Helper()
	srv := testenv.Start(t)
	objects := srv.ObjectStore(t, "stripes")
	kv := srv.KeyValue(t, "meta")
	pool := executor.New(4, 32)
	t.Cleanup(pool.Stop)

	adapter := store.NewNatsAdapter(objects, kv, pool)

	cfg := striper.Config{
		Adapter:           adapter,
		Executor:          pool,
		StripeSize:        stripeSize,
		PoolMaxFileSize:   1 << 30,
		LockLeaseDuration: 2 * time.Second,
		LockIdleTimeout:   500 * time.Millisecond,
		InlineCapacity:    inlineCapacity,
	}
	if inlineCapacity > 0 {
		cfg.IndexBinding = inline.NewMemoryBinding()
	}

	engine, err := striper.New(cfg, uid.GenerateUUID())
	require.NoError(t, err)
	return engine
}

func TestCrossStripeWrite(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	n, err := e.WriteSync(ctx, []byte("ABCDEFGHIJKL"), 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	data, err := e.Read(ctx, 0, 12)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKL", string(data))

	size, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, size.Size)
}

func TestSparseWrite(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	_, err := e.WriteSync(ctx, []byte("XYZ"), 10)
	require.NoError(t, err)

	data, err := e.Read(ctx, 0, 13)
	require.NoError(t, err)
	expect := append(make([]byte, 10), []byte("XYZ")...)
	assert.Equal(t, expect, data)

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 13, info.Size)
}

func TestTruncateShrink(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	_, err := e.WriteSync(ctx, []byte("ABCDEFGHIJKL"), 0)
	require.NoError(t, err)

	require.NoError(t, e.Truncate(ctx, 5))

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)

	data, err := e.Read(ctx, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", string(data))

	_, err = e.Read(ctx, 0, 6)
	assert.ErrorIs(t, err, storeerr.ErrOverflow)
}

func TestGrowTruncate(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	require.NoError(t, e.Truncate(ctx, 20))

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, info.Size)

	data, err := e.Read(ctx, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 20), data)
}

func TestIdempotentTruncate(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	require.NoError(t, e.Truncate(ctx, 12))
	require.NoError(t, e.Truncate(ctx, 12))

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, info.Size)
}

func TestConcurrentCASMonotonicity(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = e.WriteSync(ctx, make([]byte, 5), 0)
	}()
	go func() {
		defer wg.Done()
		_, _ = e.WriteSync(ctx, make([]byte, 50), 0)
	}()
	wg.Wait()

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 50, info.Size)
}

func TestInlineFastPath(t *testing.T) {
	e := newEngine(t, 8, 16)
	ctx := context.Background()

	_, err := e.WriteSync(ctx, []byte("hi"), 0)
	require.NoError(t, err)

	data, err := e.Read(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = e.WriteSync(ctx, []byte("X"), 20)
	require.NoError(t, err)

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 21, info.Size)
}

func TestInlineGrowTruncatePastCapacityMigratesToStripe(t *testing.T) {
	e := newEngine(t, 4096, 8)
	ctx := context.Background()

	_, err := e.WriteSync(ctx, []byte("hello"), 0)
	require.NoError(t, err)

	require.NoError(t, e.Truncate(ctx, 20))

	info, err := e.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, info.Size)

	data, err := e.Read(ctx, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = e.Read(ctx, 0, 20)
	require.NoError(t, err)
	expect := append([]byte("hello"), make([]byte, 15)...)
	assert.Equal(t, expect, data)
}

func TestWriteRejectsZeroLength(t *testing.T) {
	e := newEngine(t, 8, 0)
	_, err := e.WriteSync(context.Background(), nil, 0)
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
}

func TestWriteRejectsOversizedFile(t *testing.T) {
	e := newEngine(t, 8, 0)
	_, err := e.WriteSync(context.Background(), []byte("x"), 1<<30)
	assert.ErrorIs(t, err, storeerr.ErrFileTooBig)
}

func TestRemoveThenRemoveIsNotFound(t *testing.T) {
	e := newEngine(t, 8, 0)
	ctx := context.Background()

	_, err := e.WriteSync(ctx, []byte("data"), 0)
	require.NoError(t, err)

	require.NoError(t, e.Remove(ctx))
	assert.ErrorIs(t, e.Remove(ctx), storeerr.ErrNotFound)
}

func TestAcquireReleaseEvictable(t *testing.T) {
	e := newEngine(t, 8, 0)
	assert.True(t, e.Evictable())

	e.Acquire()
	assert.False(t, e.Evictable())

	e.Release()
	assert.True(t, e.Evictable())
}
