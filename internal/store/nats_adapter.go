package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/radosfs/striper/internal/asyncop"
	"github.com/radosfs/striper/internal/executor"
	"github.com/radosfs/striper/internal/storeerr"
)

// NatsAdapter implements Adapter against a NATS JetStream Object Store
// bucket (stripe bytes) and a JetStream Key/Value bucket (omap entries,
// xattrs, and advisory lock state). Async methods schedule the underlying
// (synchronous) nats.go call on pool and hand back a completion
// immediately.
type NatsAdapter struct {
	objects nats.ObjectStore
	kv      nats.KeyValue
	pool    *executor.Pool
}

// NewNatsAdapter builds an adapter over an already-created object store
// and key/value bucket.
func NewNatsAdapter(objects nats.ObjectStore, kv nats.KeyValue, pool *executor.Pool) *NatsAdapter {
	return &NatsAdapter{objects: objects, kv: kv, pool: pool}
}

func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, nats.ErrObjectNotFound) || errors.Is(err, nats.ErrKeyNotFound) {
		return storeerr.ErrNotFound
	}
	if errors.Is(err, nats.ErrKeyExists) || errors.Is(err, nats.ErrObjectAlreadyExists) {
		return storeerr.ErrExists
	}
	return fmt.Errorf("%w: %v", storeerr.ErrIO, err)
}

// isCASConflict reports whether err is an optimistic-concurrency rejection
// from a KeyValue.Update call (wrong expected revision), as opposed to a
// genuine store failure. nats.go does not export a dedicated sentinel for
// this case, so a create-collision sentinel plus a substring check on the
// server's "wrong last sequence" message are used together.
func isCASConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, nats.ErrKeyExists) {
		return true
	}
	return strings.Contains(err.Error(), "wrong last sequence")
}

func readAllObject(objects nats.ObjectStore, name string) ([]byte, error) {
	res, err := objects.Get(name)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerr.ErrIO, err)
	}
	return data, nil
}

// Read implements Adapter.
func (a *NatsAdapter) Read(_ context.Context, object string, off, length int64) ([]byte, error) {
	data, err := readAllObject(a.objects, object)
	if err != nil {
		return nil, err
	}

	if off >= int64(len(data)) {
		return nil, nil
	}
	end := off + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	out := make([]byte, end-off)
	copy(out, data[off:end])
	return out, nil
}

// WriteAsync implements Adapter. NATS Object Store has no partial-write
// API, so the write is a get-extend-merge-put cycle run on the shared
// executor; each stripe is only ever touched by one writer at a time
// above this layer (the Lock Manager serializes multi-stripe writers),
// so the read-modify-write window is not a correctness hazard in
// practice.
func (a *NatsAdapter) WriteAsync(_ context.Context, object string, off int64, data []byte) (*asyncop.Completion, error) {
	completion := asyncop.NewCompletion()

	a.pool.Submit(func() {
		existing, err := readAllObject(a.objects, object)
		if err != nil && !errors.Is(err, storeerr.ErrNotFound) {
			completion.Finish(err)
			return
		}

		required := int(off) + len(data)
		if required > len(existing) {
			grown := make([]byte, required)
			copy(grown, existing)
			existing = grown
		}
		copy(existing[off:], data)

		_, err = a.objects.Put(&nats.ObjectMeta{Name: object}, bytes.NewReader(existing))
		completion.Finish(mapStoreErr(err))
	})

	return completion, nil
}

// TruncateAsync implements Adapter. A missing object is treated as
// zero-length rather than an error, so truncating to grow a stripe that
// was never written (e.g. the new-last stripe of a grow-truncate on a
// previously empty file) creates it instead of failing.
func (a *NatsAdapter) TruncateAsync(_ context.Context, object string, size int64) (*asyncop.Completion, error) {
	completion := asyncop.NewCompletion()

	a.pool.Submit(func() {
		existing, err := readAllObject(a.objects, object)
		if err != nil {
			if !errors.Is(err, storeerr.ErrNotFound) {
				completion.Finish(err)
				return
			}
			existing = nil
		}

		var resized []byte
		if size <= int64(len(existing)) {
			resized = existing[:size]
		} else {
			resized = make([]byte, size)
			copy(resized, existing)
		}

		_, err = a.objects.Put(&nats.ObjectMeta{Name: object}, bytes.NewReader(resized))
		completion.Finish(mapStoreErr(err))
	})

	return completion, nil
}

// RemoveAsync implements Adapter.
func (a *NatsAdapter) RemoveAsync(_ context.Context, object string) (*asyncop.Completion, error) {
	completion := asyncop.NewCompletion()

	a.pool.Submit(func() {
		err := a.objects.Delete(object)
		completion.Finish(mapStoreErr(err))
	})

	return completion, nil
}

// Stat implements Adapter.
func (a *NatsAdapter) Stat(_ context.Context, object string) (Info, error) {
	info, err := a.objects.GetInfo(object)
	if err != nil {
		return Info{}, mapStoreErr(err)
	}
	return Info{Size: int64(info.Size), ModTime: info.ModTime}, nil
}

func omapKey(object, key string) string {
	return fmt.Sprintf("%s.%s", object, key)
}

// OmapGet implements Adapter.
func (a *NatsAdapter) OmapGet(_ context.Context, object string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		entry, err := a.kv.Get(omapKey(object, key))
		if err != nil {
			if errors.Is(err, nats.ErrKeyNotFound) {
				continue
			}
			return nil, mapStoreErr(err)
		}
		out[key] = string(entry.Value())
	}
	return out, nil
}

// OmapSet implements Adapter.
func (a *NatsAdapter) OmapSet(_ context.Context, object string, kv map[string]string) error {
	for key, value := range kv {
		if _, err := a.kv.Put(omapKey(object, key), []byte(value)); err != nil {
			return mapStoreErr(err)
		}
	}
	return nil
}

// OmapSetIfLess implements Adapter, looping on optimistic-concurrency
// conflicts until either the new value is committed or an existing value
// already compares >= newHexValue (the predicate failure the engine
// treats as a successful no-op).
func (a *NatsAdapter) OmapSetIfLess(_ context.Context, object, key, newHexValue string) error {
	fullKey := omapKey(object, key)

	for {
		entry, err := a.kv.Get(fullKey)
		if errors.Is(err, nats.ErrKeyNotFound) {
			if _, err := a.kv.Create(fullKey, []byte(newHexValue)); err != nil {
				if isCASConflict(err) {
					continue
				}
				return mapStoreErr(err)
			}
			return nil
		}
		if err != nil {
			return mapStoreErr(err)
		}

		if string(entry.Value()) >= newHexValue {
			return storeerr.ErrCanceled
		}

		if _, err := a.kv.Update(fullKey, []byte(newHexValue), entry.Revision()); err != nil {
			if isCASConflict(err) {
				continue
			}
			return mapStoreErr(err)
		}
		return nil
	}
}

// OmapDelete implements Adapter.
func (a *NatsAdapter) OmapDelete(_ context.Context, object string, keys ...string) error {
	for _, key := range keys {
		if err := a.kv.Delete(omapKey(object, key)); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
			return mapStoreErr(err)
		}
	}
	return nil
}

// SetXattr implements Adapter.
func (a *NatsAdapter) SetXattr(_ context.Context, object, key, value string) error {
	_, err := a.kv.Put(omapKey(object, "xattr."+key), []byte(value))
	return mapStoreErr(err)
}

// GetXattr implements Adapter.
func (a *NatsAdapter) GetXattr(_ context.Context, object, key string) (string, error) {
	entry, err := a.kv.Get(omapKey(object, "xattr."+key))
	if err != nil {
		return "", mapStoreErr(err)
	}
	return string(entry.Value()), nil
}

type lockRecord struct {
	Mode      string    `json:"mode"`
	Cookie    string    `json:"cookie"`
	ExpiresAt time.Time `json:"expires_at"`
}

func lockKey(object string) string {
	return fmt.Sprintf("%s.lock", object)
}

func (a *NatsAdapter) lock(_ context.Context, object, mode, cookie string, lease time.Duration) error {
	key := lockKey(object)

	for {
		entry, err := a.kv.Get(key)
		if errors.Is(err, nats.ErrKeyNotFound) {
			rec := lockRecord{Mode: mode, Cookie: cookie, ExpiresAt: time.Now().Add(lease)}
			encoded, _ := json.Marshal(rec)
			if _, err := a.kv.Create(key, encoded); err != nil {
				if isCASConflict(err) {
					continue
				}
				return mapStoreErr(err)
			}
			return nil
		}
		if err != nil {
			return mapStoreErr(err)
		}

		var rec lockRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			return fmt.Errorf("%w: corrupt lock record: %v", storeerr.ErrIO, err)
		}

		expired := time.Now().After(rec.ExpiresAt)
		if !expired && !(rec.Mode == mode && rec.Cookie == cookie) {
			return storeerr.ErrBusy
		}

		newRec := lockRecord{Mode: mode, Cookie: cookie, ExpiresAt: time.Now().Add(lease)}
		encoded, _ := json.Marshal(newRec)
		if _, err := a.kv.Update(key, encoded, entry.Revision()); err != nil {
			if isCASConflict(err) {
				continue
			}
			return mapStoreErr(err)
		}
		return nil
	}
}

// LockShared implements Adapter.
func (a *NatsAdapter) LockShared(ctx context.Context, object, cookie string, lease time.Duration) error {
	return a.lock(ctx, object, "shared", cookie, lease)
}

// LockExclusive implements Adapter.
func (a *NatsAdapter) LockExclusive(ctx context.Context, object, cookie string, lease time.Duration) error {
	return a.lock(ctx, object, "exclusive", cookie, lease)
}

// Unlock implements Adapter. Advisory: failures here are not propagated as
// fatal, matching spec.md §7 (teardown logs but does not fail on unlock
// errors); a missing or foreign-held lock is simply a no-op.
func (a *NatsAdapter) Unlock(_ context.Context, object, cookie string) error {
	key := lockKey(object)

	entry, err := a.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return mapStoreErr(err)
	}

	var rec lockRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil
	}
	if rec.Cookie != cookie {
		return nil
	}

	if err := a.kv.Delete(key, nats.LastRevision(entry.Revision())); err != nil {
		if isCASConflict(err) {
			return nil
		}
		return mapStoreErr(err)
	}
	return nil
}
