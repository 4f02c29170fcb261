// Package storeerr defines the error taxonomy shared by every layer of
// the striped I/O engine, so a caller can errors.Is regardless of which
// component (adapter, lock manager, metadata, engine) produced the error.
package storeerr

import "errors"

var (
	// ErrInvalidArgument is returned for bad parameters (e.g. a zero-length
	// read or write) caught before any side effect.
	ErrInvalidArgument = errors.New("striper: invalid argument")

	// ErrOverflow is returned when a read extends past the file's current size.
	ErrOverflow = errors.New("striper: read past end of file")

	// ErrFileTooBig is returned when a write or truncate would exceed the
	// pool's configured maximum file size.
	ErrFileTooBig = errors.New("striper: file too big for pool")

	// ErrNotFound is returned when the base object (or a stripe asserted to
	// exist) is missing from the backing store.
	ErrNotFound = errors.New("striper: object not found")

	// ErrExists is surfaced verbatim from the store when a create collides
	// with an existing object.
	ErrExists = errors.New("striper: object already exists")

	// ErrBusy signals lock contention. Internal: a caller of the Lock
	// Manager never observes it directly, the manager retries instead.
	ErrBusy = errors.New("striper: lock busy")

	// ErrCanceled signals a compare-and-set predicate failed. Internal: the
	// size CAS treats it as a successful no-op (another writer already grew
	// the size past the one being requested).
	ErrCanceled = errors.New("striper: compare-and-set canceled")

	// ErrIO is a generic store-level failure with no more specific mapping.
	ErrIO = errors.New("striper: store I/O error")

	// ErrNoDevice means the engine was never bound to a pool.
	ErrNoDevice = errors.New("striper: not bound to a pool")
)
