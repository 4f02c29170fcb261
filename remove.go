package striper

import (
	"context"

	"github.com/inovacc/utils/v2/uid"
)

// Remove deletes every stripe of the file, base object first so
// concurrent openers observe the inode disappear as soon as possible
// (original_source/src/FileIO.cc's removal-order comment, carried into
// this module per SPEC_FULL.md §9).
func (e *Engine) Remove(ctx context.Context) error {
	if err := e.ops.Sync(); err != nil {
		return err
	}

	holder := uid.GenerateUUID()
	if err := e.lockMgr.ReleaseShared(ctx); err != nil {
		e.log.Debugf("remove: release shared: %v", err)
	}
	if err := e.lockMgr.AcquireExclusive(ctx, holder); err != nil {
		return err
	}

	lastStripe, _, err := e.meta.LastStripeIndexAndSize(ctx, e.cfg.StripeSize)
	if err != nil {
		e.lockMgr.ResetHolder()
		return err
	}

	op := e.ops.New(holder)
	for idx := uint64(0); idx <= lastStripe; idx++ {
		c, rerr := e.cfg.Adapter.RemoveAsync(ctx, e.stripeObject(idx))
		if rerr != nil {
			op.AddCompletion(failedCompletion(rerr))
			continue
		}
		op.AddCompletion(c)
	}
	op.SetReady()

	err = e.syncAndResetLocker(holder)
	if err == nil {
		err = e.meta.Delete(ctx)
	}
	return err
}
