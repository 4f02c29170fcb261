package striper

import (
	"errors"
	"time"

	"github.com/radosfs/striper/internal/executor"
	"github.com/radosfs/striper/internal/inline"
	"github.com/radosfs/striper/internal/logging"
	"github.com/radosfs/striper/internal/store"
)

// LogLevel selects the engine's logging verbosity.
type LogLevel int

const (
	// LogOff disables engine logging entirely.
	LogOff LogLevel = iota
	// LogDebug enables debug messages: a failed asynchronous write op
	// (logged once for the whole op) and errors swallowed by Close and
	// Remove. Individual store completions are not logged.
	LogDebug
)

// Config carries every knob the striped I/O engine needs, plus the two
// external collaborators this module does not implement itself: the
// backing store adapter and (optionally) the directory index's inline
// binding.
type Config struct {
	// Adapter is the backing object-store adapter. Required.
	Adapter store.Adapter

	// Executor is the shared fire-and-forget task pool async writes are
	// submitted to. Owned externally (by the containing filesystem),
	// per spec.md §9's executor-integration note. Required.
	Executor *executor.Pool

	// StripeSize is the number of bytes per stripe object. Required,
	// must be > 0.
	StripeSize uint64

	// PoolAlignment, if true, pads every stripe write to exactly
	// StripeSize bytes on the wire.
	PoolAlignment bool

	// PoolMaxFileSize bounds off+len for writes and new_size for
	// truncate, and fixes the hex width used for the file_size omap
	// entry. Required, must be > 0.
	PoolMaxFileSize uint64

	// LockLeaseDuration is the advisory lock's lease window. Required,
	// must be > 0.
	LockLeaseDuration time.Duration

	// LockIdleTimeout is how long a holder-less lock may sit before
	// ManageIdle reclaims it.
	LockIdleTimeout time.Duration

	// InlineCapacity is the number of leading bytes held inline in the
	// directory index entry; 0 disables the inline fast path.
	InlineCapacity int

	// IndexBinding is the directory index collaborator backing the
	// inline buffer. Required only when InlineCapacity > 0; when nil
	// and InlineCapacity > 0, an in-memory binding is used.
	IndexBinding inline.IndexBinding

	// LogLevel selects engine log verbosity.
	LogLevel LogLevel
}

func (c *Config) validate() error {
	if c.Adapter == nil {
		return errors.New("striper: Adapter is required")
	}
	if c.Executor == nil {
		return errors.New("striper: Executor is required")
	}
	if c.StripeSize == 0 {
		return errors.New("striper: StripeSize must be > 0")
	}
	if c.PoolMaxFileSize == 0 {
		return errors.New("striper: PoolMaxFileSize must be > 0")
	}
	if c.LockLeaseDuration <= 0 {
		return errors.New("striper: LockLeaseDuration must be > 0")
	}
	if c.InlineCapacity < 0 {
		return errors.New("striper: InlineCapacity must be >= 0")
	}
	return nil
}

func (c *Config) logger() *logging.Logger {
	level := logging.Off
	if c.LogLevel == LogDebug {
		level = logging.Debug
	}
	return logging.New(level)
}
