package striper

import (
	"context"

	"github.com/radosfs/striper/internal/asyncop"
)

// realWrite performs the actual write behind both Write (scheduled on the
// executor) and WriteSync (run inline): absorb into the inline buffer
// when present, CAS-grow the authoritative size, fan out per-stripe
// async writes under the appropriate lock mode, and mark the op ready.
func (e *Engine) realWrite(ctx context.Context, op *asyncop.Op, data []byte, off int64) {
	holder := op.ID()

	if e.inlineB != nil {
		consumed := e.absorbInline(off, data)
		data = data[consumed:]
		off += int64(consumed)
		if len(data) == 0 {
			op.SetReady()
			return
		}
	}

	e.meta.UpdateMtimeAsync(ctx)

	stripeSize := int64(e.cfg.StripeSize)
	firstStripe := uint64(off / stripeSize)
	lastStripe := uint64((off + int64(len(data)) - 1) / stripeSize)
	totalStripes := lastStripe - firstStripe + 1

	exclusive := totalStripes > 1
	if exclusive {
		if err := e.lockMgr.AcquireExclusive(ctx, holder); err != nil {
			op.AddCompletion(failedCompletion(err))
			op.SetReady()
			return
		}
	} else {
		if err := e.lockMgr.AcquireShared(ctx, holder); err != nil {
			op.AddCompletion(failedCompletion(err))
			op.SetReady()
			return
		}
	}

	if err := e.meta.SetSizeIfBigger(ctx, uint64(off+int64(len(data)))); err != nil {
		op.AddCompletion(failedCompletion(err))
		op.SetReady()
		e.lockMgr.ResetHolder()
		return
	}

	remaining := data
	for idx := firstStripe; idx <= lastStripe; idx++ {
		// Reassert the lock each iteration; the renewal path is cheap
		// when already held by this op, but a fatal renewal failure must
		// abort the remaining stripes the same way the initial acquire
		// does -- otherwise later stripes write with no lock held at all.
		var renewErr error
		if exclusive {
			renewErr = e.lockMgr.AcquireExclusive(ctx, holder)
		} else {
			renewErr = e.lockMgr.AcquireShared(ctx, holder)
		}
		if renewErr != nil {
			op.AddCompletion(failedCompletion(renewErr))
			break
		}

		stripeStart := int64(idx) * stripeSize
		writeOff := int64(0)
		if off > stripeStart {
			writeOff = off - stripeStart
		}
		available := stripeSize - writeOff
		n := int64(len(remaining))
		if n > available {
			n = available
		}
		slice := remaining[:n]
		remaining = remaining[n:]

		if e.cfg.PoolAlignment && int64(len(slice))+writeOff < stripeSize {
			padded := make([]byte, stripeSize-writeOff)
			copy(padded, slice)
			slice = padded
		}

		completion, err := e.cfg.Adapter.WriteAsync(ctx, e.stripeObject(idx), writeOff, slice)
		if err != nil {
			op.AddCompletion(failedCompletion(err))
			continue
		}
		op.AddCompletion(completion)
	}

	op.SetReady()

	// Wait on the op itself rather than through the manager: the op stays
	// registered so WriteSync's Wait (or a later Sync) can still report
	// its status and retire it.
	err := op.Wait()
	e.lockMgr.ResetHolder()
	if err != nil {
		e.log.Completion(holder, "realWrite", err)
	}
}

// absorbInline writes as much of data at off as fits the inline buffer,
// returning the number of bytes consumed from the front of data. Writes
// that start beyond the inline region first trigger FillRemaining so no
// partially-zero-padded inline state is left behind.
func (e *Engine) absorbInline(off int64, data []byte) int {
	capacity := int64(e.cfg.InlineCapacity)

	if off >= capacity {
		e.inlineB.FillRemaining()
		return 0
	}

	return e.inlineB.Write(off, data)
}

func failedCompletion(err error) *asyncop.Completion {
	c := asyncop.NewCompletion()
	c.Finish(err)
	return c
}
