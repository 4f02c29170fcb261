// Package store abstracts the backing object pool: read/write/truncate/
// remove/omap/stat/advisory-lock on named objects, synchronous and
// asynchronous, per spec.md §4.A. The concrete implementation targets
// NATS JetStream (ObjectStore for stripe bytes, KeyValue for omap/lock
// state), but callers above this package depend only on Adapter.
package store

import (
	"context"
	"time"

	"github.com/radosfs/striper/internal/asyncop"
)

// Adapter is the minimal surface the striped I/O engine needs from the
// backing pool.
type Adapter interface {
	// Read returns up to length bytes of object starting at off. Short
	// reads (object shorter than off+length) return the available bytes
	// without error; a missing object returns storeerr.ErrNotFound.
	Read(ctx context.Context, object string, off, length int64) ([]byte, error)

	// WriteAsync schedules writing data into object at off, growing the
	// object if necessary, and returns a completion the caller attaches to
	// an asyncop.Op.
	WriteAsync(ctx context.Context, object string, off int64, data []byte) (*asyncop.Completion, error)

	// TruncateAsync schedules truncating (or zero-extending) object to
	// size. A missing object is treated as zero-length, so truncating to
	// grow a never-written object creates it.
	TruncateAsync(ctx context.Context, object string, size int64) (*asyncop.Completion, error)

	// RemoveAsync schedules deleting object.
	RemoveAsync(ctx context.Context, object string) (*asyncop.Completion, error)

	// Stat returns object's size and modification time.
	Stat(ctx context.Context, object string) (Info, error)

	// OmapGet returns the subset of keys present in object's omap.
	OmapGet(ctx context.Context, object string, keys ...string) (map[string]string, error)

	// OmapSet unconditionally sets the given omap entries, creating object
	// if it does not already exist.
	OmapSet(ctx context.Context, object string, kv map[string]string) error

	// OmapSetIfLess atomically sets object's omap[key] = newHexValue only
	// if the current value compares lexicographically less than
	// newHexValue (or is absent). Returns storeerr.ErrCanceled, treated by
	// callers as a successful no-op, when the predicate fails.
	OmapSetIfLess(ctx context.Context, object, key, newHexValue string) error

	// OmapDelete removes the given omap keys from object, if present.
	OmapDelete(ctx context.Context, object string, keys ...string) error

	// SetXattr sets a single extended attribute on object.
	SetXattr(ctx context.Context, object, key, value string) error

	// GetXattr returns a single extended attribute on object.
	// storeerr.ErrNotFound if it is not set.
	GetXattr(ctx context.Context, object, key string) (string, error)

	// LockShared attempts to claim (or renew, with the same cookie) a
	// shared advisory lock on object for lease. Returns storeerr.ErrBusy
	// if an incompatible lock is currently held.
	LockShared(ctx context.Context, object, cookie string, lease time.Duration) error

	// LockExclusive attempts to claim (or renew) an exclusive advisory
	// lock on object for lease. Returns storeerr.ErrBusy if any
	// incompatible lock is currently held.
	LockExclusive(ctx context.Context, object, cookie string, lease time.Duration) error

	// Unlock releases the advisory lock held under cookie, if any.
	Unlock(ctx context.Context, object, cookie string) error
}
