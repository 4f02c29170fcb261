// Package meta implements the authoritative file size and mtime, held in
// the base object's omap/xattrs, per spec.md §4.E.
package meta

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/radosfs/striper/internal/store"
	"github.com/radosfs/striper/internal/storeerr"
)

const (
	keyFileSize       = "file_size"
	keyLastStripeSize = "last_stripe_size"
	keyMtime          = "mtime"
)

// Store is the size/mtime metadata view of a single inode's base object.
type Store struct {
	adapter store.Adapter
	base    string
	// hexWidth is fixed at pool-init time from the pool's maximum file
	// size, so lexicographic and numeric comparisons agree cluster-wide
	// (spec.md §9).
	hexWidth int
}

// HexWidth returns the hex digit count needed to represent poolMaxFileSize,
// the width every Store in a pool must share.
func HexWidth(poolMaxFileSize uint64) int {
	return len(strconv.FormatUint(poolMaxFileSize, 16))
}

// New returns the metadata view for the base object named base.
func New(adapter store.Adapter, base string, hexWidth int) *Store {
	return &Store{adapter: adapter, base: base, hexWidth: hexWidth}
}

func (s *Store) encodeSize(size uint64) string {
	return fmt.Sprintf("%0*x", s.hexWidth, size)
}

// GetSize reads the authoritative file_size omap entry. A missing base
// object or missing entry reports size 0 with no error.
func (s *Store) GetSize(ctx context.Context) (uint64, error) {
	kv, err := s.adapter.OmapGet(ctx, s.base, keyFileSize)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	hexVal, ok := kv[keyFileSize]
	if !ok {
		return 0, nil
	}
	size, err := strconv.ParseUint(hexVal, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt file_size: %v", storeerr.ErrIO, err)
	}
	return size, nil
}

// SetSizeIfBigger performs the grow-only compare-and-set write path used
// on every ordinary write: the omap entry is updated only if size is
// strictly greater than the currently stored value. A predicate failure
// (another writer already grew the size past this one) is swallowed —
// spec.md §4.E / §7 treat it as a successful no-op.
func (s *Store) SetSizeIfBigger(ctx context.Context, size uint64) error {
	err := s.adapter.OmapSetIfLess(ctx, s.base, keyFileSize, s.encodeSize(size))
	if errors.Is(err, storeerr.ErrCanceled) {
		return nil
	}
	return err
}

// SetSize unconditionally sets file_size, the only operation (truncate)
// allowed to shrink it.
func (s *Store) SetSize(ctx context.Context, size uint64) error {
	return s.adapter.OmapSet(ctx, s.base, map[string]string{keyFileSize: s.encodeSize(size)})
}

// SetLastStripeSize records the real byte count of the last stripe, used
// only by alignment pools (spec.md §3, §6).
func (s *Store) SetLastStripeSize(ctx context.Context, size uint64) error {
	return s.adapter.OmapSet(ctx, s.base, map[string]string{keyLastStripeSize: strconv.FormatUint(size, 10)})
}

// LastStripeIndexAndSize returns (⌈S/stripeSize⌉−1, S) for the current
// file size S; for S == 0 it returns (0, 0). It asserts the base object
// exists, propagating storeerr.ErrNotFound when it is absent, per
// spec.md §4.E.
func (s *Store) LastStripeIndexAndSize(ctx context.Context, stripeSize uint64) (uint64, uint64, error) {
	kv, err := s.adapter.OmapGet(ctx, s.base, keyFileSize)
	if err != nil {
		return 0, 0, err
	}
	if _, ok := kv[keyFileSize]; !ok {
		return 0, 0, storeerr.ErrNotFound
	}

	hexVal := kv[keyFileSize]
	size, err := strconv.ParseUint(hexVal, 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: corrupt file_size: %v", storeerr.ErrIO, err)
	}
	if size == 0 {
		return 0, 0, nil
	}
	return (size - 1) / stripeSize, size, nil
}

// UpdateMtimeAsync fires off a best-effort mtime xattr update; errors are
// not returned to the caller, matching spec.md §4.E's "fire-and-forget".
func (s *Store) UpdateMtimeAsync(ctx context.Context) {
	go func() {
		_ = s.adapter.SetXattr(ctx, s.base, keyMtime, time.Now().UTC().Format(time.RFC3339Nano))
	}()
}

// Delete removes the base object's file_size and last_stripe_size omap
// entries (the mtime xattr is left in place), used when the engine removes the file's last stripe so a subsequent
// LastStripeIndexAndSize correctly reports storeerr.ErrNotFound rather
// than stale size data surviving the stripes it described.
func (s *Store) Delete(ctx context.Context) error {
	return s.adapter.OmapDelete(ctx, s.base, keyFileSize, keyLastStripeSize)
}

// GetMtime reads the mtime xattr, returning the zero time if it was
// never set.
func (s *Store) GetMtime(ctx context.Context) (time.Time, error) {
	raw, err := s.adapter.GetXattr(ctx, s.base, keyMtime)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: corrupt mtime: %v", storeerr.ErrIO, err)
	}
	return t, nil
}
