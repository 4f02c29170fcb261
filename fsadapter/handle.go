// Package fsadapter bridges the striped I/O engine to go-fuse/v2's
// per-file handle interfaces. It deliberately stops at the file handle:
// the directory/namespace layer and mount root are out of scope for this
// module (spec.md §1) and remain the containing filesystem's job.
package fsadapter

import (
	"context"
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/radosfs/striper"
	"github.com/radosfs/striper/internal/storeerr"
)

// EngineHandle adapts a *striper.Engine to fs.FileHandle, so a namespace
// layer that already resolved a path to an inode can hand the resulting
// Engine to go-fuse without reimplementing read/write/attr plumbing.
type EngineHandle struct {
	engine *striper.Engine
}

// NewEngineHandle wraps engine as an fs.FileHandle.
func NewEngineHandle(engine *striper.Engine) *EngineHandle {
	return &EngineHandle{engine: engine}
}

var (
	_ fs.FileReader    = (*EngineHandle)(nil)
	_ fs.FileWriter    = (*EngineHandle)(nil)
	_ fs.FileFlusher   = (*EngineHandle)(nil)
	_ fs.FileGetattrer = (*EngineHandle)(nil)
	_ fs.FileSetattrer = (*EngineHandle)(nil)
	_ fs.FileReleaser  = (*EngineHandle)(nil)
)

func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return fs.OK
	case errors.Is(err, storeerr.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, storeerr.ErrExists):
		return syscall.EEXIST
	case errors.Is(err, storeerr.ErrInvalidArgument):
		return syscall.EINVAL
	case errors.Is(err, storeerr.ErrFileTooBig):
		return syscall.EFBIG
	case errors.Is(err, storeerr.ErrOverflow):
		return syscall.EINVAL
	case errors.Is(err, storeerr.ErrNoDevice):
		return syscall.ENXIO
	default:
		return syscall.EIO
	}
}

// Read implements fs.FileReader.
func (h *EngineHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := h.engine.Read(ctx, off, int64(len(dest)))
	if err != nil {
		if errors.Is(err, storeerr.ErrOverflow) {
			return fuse.ReadResultData(nil), fs.OK
		}
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(data), fs.OK
}

// Write implements fs.FileWriter. It runs the write synchronously:
// go-fuse's Write callback has no notion of a pending op the caller can
// poll later, so this always waits for durability before returning.
func (h *EngineHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.engine.WriteSync(ctx, data, off)
	if err != nil {
		return 0, errnoFor(err)
	}
	return uint32(n), fs.OK
}

// Flush implements fs.FileFlusher by synchronizing outstanding ops.
func (h *EngineHandle) Flush(context.Context) syscall.Errno {
	return errnoFor(h.engine.Sync())
}

// Release implements fs.FileReleaser, tearing down the engine's lock and
// (if configured) removing the file.
func (h *EngineHandle) Release(ctx context.Context) syscall.Errno {
	return errnoFor(h.engine.Close(ctx))
}

// Getattr implements fs.FileGetattrer.
func (h *EngineHandle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	info, err := h.engine.Stat(ctx)
	if err != nil {
		return errnoFor(err)
	}
	out.Size = uint64(info.Size)
	out.SetTimes(nil, &info.ModTime, nil)
	return fs.OK
}

// Setattr implements fs.FileSetattrer, handling only the size change
// (truncate); other attribute changes belong to the namespace layer.
func (h *EngineHandle) Setattr(ctx context.Context, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := h.engine.Truncate(ctx, int64(size)); err != nil {
			return errnoFor(err)
		}
	}
	return h.Getattr(ctx, out)
}
