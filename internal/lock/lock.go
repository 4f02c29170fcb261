// Package lock implements the per-inode lease-based advisory lock used
// to serialize multi-stripe writes, per spec.md §4.D. Authoritative file
// size lives in the CAS-guarded omap entry (package meta), never here --
// this package only reduces write-write thrash.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/radosfs/striper/internal/store"
	"github.com/radosfs/striper/internal/storeerr"
)

const (
	// cookieShared and cookieExclusive are fixed, not per-call, so every
	// shared holder collapses to one lease identity at the store level
	// (spec.md §9's design note).
	cookieShared    = "writer"
	cookieExclusive = "other"
)

// Manager holds the local lease-renewal fast path for a single inode's
// base object. It is not safe to share across inodes; the engine keeps
// one Manager per open inode.
type Manager struct {
	adapter store.Adapter
	object  string
	lease   time.Duration

	mu         sync.Mutex
	holderID   string
	leaseStart time.Time
}

// New returns a lock Manager for the base object named object.
func New(adapter store.Adapter, object string, lease time.Duration) *Manager {
	return &Manager{adapter: adapter, object: object, lease: lease}
}

// fastRenew reports whether holder can be granted (or renewed) the lock
// purely from local state, without a round trip to the store: the lease
// is still fresh and either nobody holds it or holder already does.
func (m *Manager) fastRenew(holder string) bool {
	if time.Since(m.leaseStart) >= m.lease-time.Second {
		return false
	}
	return m.holderID == "" || m.holderID == holder
}

// acquire is the shared implementation of acquireShared/acquireExclusive:
// try the local fast path first, then fall back to the store's lock
// call, retried while it reports storeerr.ErrBusy.
func (m *Manager) acquire(ctx context.Context, holder, cookie string, storeLock func(context.Context, string, string, time.Duration) error) error {
	m.mu.Lock()
	if m.fastRenew(holder) {
		m.holderID = holder
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	for {
		err := storeLock(ctx, m.object, cookie, m.lease)
		if err == nil {
			m.mu.Lock()
			m.holderID = holder
			m.leaseStart = time.Now()
			m.mu.Unlock()
			return nil
		}
		if errors.Is(err, storeerr.ErrBusy) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}
		return err
	}
}

// AcquireShared claims (or renews) the shared lease under holder, used
// for single-stripe writes.
func (m *Manager) AcquireShared(ctx context.Context, holder string) error {
	return m.acquire(ctx, holder, cookieShared, m.adapter.LockShared)
}

// AcquireExclusive claims (or renews) the exclusive lease under holder,
// used for multi-stripe writes, truncate, and remove.
func (m *Manager) AcquireExclusive(ctx context.Context, holder string) error {
	return m.acquire(ctx, holder, cookieExclusive, m.adapter.LockExclusive)
}

// ReleaseShared unlocks the shared cookie and clears the local holder.
func (m *Manager) ReleaseShared(ctx context.Context) error {
	return m.release(ctx, cookieShared)
}

// ReleaseExclusive unlocks the exclusive cookie and clears the local
// holder.
func (m *Manager) ReleaseExclusive(ctx context.Context) error {
	return m.release(ctx, cookieExclusive)
}

func (m *Manager) release(ctx context.Context, cookie string) error {
	m.mu.Lock()
	m.holderID = ""
	m.mu.Unlock()
	return m.adapter.Unlock(ctx, m.object, cookie)
}

// ResetHolder clears the local holder identity without touching the
// store-side cookie, which remains held until ManageIdle or the next
// acquirer reclaims it -- the write path's sync_and_reset_locker step
// (spec.md §4.F real_write step 7).
func (m *Manager) ResetHolder() {
	m.mu.Lock()
	m.holderID = ""
	m.mu.Unlock()
}

// ManageIdle releases both cookies and advances the lease window past
// expiry if the lock is currently holder-less and the time since the
// lease started is at least idleTimeout and at most the lease duration;
// past the lease duration it does nothing. It never blocks: if the local
// mutex is contended it is a no-op for this call.
func (m *Manager) ManageIdle(ctx context.Context, idleTimeout time.Duration) {
	if !m.mu.TryLock() {
		return
	}
	defer m.mu.Unlock()

	if m.holderID != "" {
		return
	}
	idle := time.Since(m.leaseStart)
	if idle < idleTimeout || idle > m.lease {
		return
	}

	_ = m.adapter.Unlock(ctx, m.object, cookieShared)
	_ = m.adapter.Unlock(ctx, m.object, cookieExclusive)
	m.leaseStart = time.Now().Add(-m.lease - time.Second)
}
