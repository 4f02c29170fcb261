package striper

import (
	"context"
	"errors"

	"github.com/inovacc/utils/v2/uid"

	"github.com/radosfs/striper/internal/storeerr"
)

// Truncate resizes the file to newSize, per spec.md §4.F: synchronize
// in-flight ops, truncate the inline buffer, acquire the exclusive lock,
// unconditionally set the authoritative size, and adjust the stripe
// sequence to match.
func (e *Engine) Truncate(ctx context.Context, newSize int64) error {
	if newSize < 0 || uint64(newSize) > e.cfg.PoolMaxFileSize {
		return storeerr.ErrFileTooBig
	}
	if err := e.ops.Sync(); err != nil {
		return err
	}

	holder := uid.GenerateUUID()
	e.meta.UpdateMtimeAsync(ctx)

	if err := e.lockMgr.AcquireExclusive(ctx, holder); err != nil {
		return err
	}

	stripeSize := e.cfg.StripeSize

	if e.inlineB != nil {
		if migrated := e.inlineB.Truncate(newSize); len(migrated) > 0 {
			payload := migrated
			if e.cfg.PoolAlignment && int64(len(payload)) < int64(stripeSize) {
				padded := make([]byte, stripeSize)
				copy(padded, payload)
				payload = padded
			}
			completion, err := e.cfg.Adapter.WriteAsync(ctx, e.stripeObject(0), 0, payload)
			if err != nil {
				e.lockMgr.ResetHolder()
				return err
			}
			if err := completion.Wait(); err != nil {
				e.lockMgr.ResetHolder()
				return err
			}
		}
	}
	lastStripe, currentSize, err := e.meta.LastStripeIndexAndSize(ctx, stripeSize)
	if err != nil {
		if !errors.Is(err, storeerr.ErrNotFound) {
			e.lockMgr.ResetHolder()
			return err
		}
		lastStripe, currentSize = 0, 0
	}

	// new_last_stripe is the index, not the size -- spec.md §9 flags the
	// original source's index/size conflation as a bug; this uses
	// (new_size-1)/stripe_size.
	newLastStripe := uint64(0)
	if newSize > 0 {
		newLastStripe = uint64(newSize-1) / stripeSize
	}

	total := uint64(1)
	if newSize < int64(currentSize) {
		total = lastStripe - newLastStripe + 1
	}
	newLastStripeSize := uint64(newSize) - newLastStripe*stripeSize

	if err := e.meta.SetSize(ctx, uint64(newSize)); err != nil {
		e.lockMgr.ResetHolder()
		return err
	}
	if e.cfg.PoolAlignment {
		if err := e.meta.SetLastStripeSize(ctx, newLastStripeSize); err != nil {
			e.lockMgr.ResetHolder()
			return err
		}
	}

	op := e.ops.New(holder)

	for i := int64(total) - 1; i >= 0; i-- {
		if i == 0 {
			// The new-last stripe is never deleted; it is resized in
			// place so any still-open reader of it keeps working.
			if e.cfg.PoolAlignment {
				padding := make([]byte, stripeSize-newLastStripeSize)
				c, werr := e.cfg.Adapter.WriteAsync(ctx, e.stripeObject(newLastStripe), int64(newLastStripeSize), padding)
				if werr != nil {
					op.AddCompletion(failedCompletion(werr))
					continue
				}
				op.AddCompletion(c)
			} else {
				c, terr := e.cfg.Adapter.TruncateAsync(ctx, e.stripeObject(newLastStripe), int64(newLastStripeSize))
				if terr != nil {
					op.AddCompletion(failedCompletion(terr))
					continue
				}
				op.AddCompletion(c)
			}
			continue
		}

		c, rerr := e.cfg.Adapter.RemoveAsync(ctx, e.stripeObject(newLastStripe+uint64(i)))
		if rerr != nil {
			op.AddCompletion(failedCompletion(rerr))
			continue
		}
		op.AddCompletion(c)
	}

	op.SetReady()
	return e.syncAndResetLocker(holder)
}
