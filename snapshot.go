package genarena

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/genarena/blobstore"
	"github.com/hupe1980/genarena/codec"
	"github.com/hupe1980/genarena/internal/slab"
	"github.com/hupe1980/genarena/persistence"
	"github.com/hupe1980/genarena/resource"
)

// Snapshot writes every slot, its generation and the free list to w, and
// returns the number of bytes written.
//
// Handles taken before the snapshot stay valid in an arena restored from it,
// and stale handles stay stale. Snapshot fails with ErrBorrowConflict while
// any exclusive borrow is outstanding; shared borrows are fine.
func (a *Arena[T]) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	start := time.Now()
	n, err := a.snapshot(ctx, w)
	a.opts.metricsCollector.RecordSnapshot(n, time.Since(start), err)
	a.opts.logger.LogSnapshot(ctx, a.slots.Cap(), n, err)
	return n, err
}

func (a *Arena[T]) snapshot(ctx context.Context, w io.Writer) (int64, error) {
	rc := a.opts.controller
	if err := rc.AcquireSnapshot(ctx); err != nil {
		return 0, err
	}
	defer rc.ReleaseSnapshot()

	img, err := a.image()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return persistence.Encode(resource.NewRateLimitedWriter(ctx, w, rc), img)
}

func (a *Arena[T]) image() (*persistence.Image, error) {
	img := &persistence.Image{
		Codec:       a.opts.codec.Name(),
		Compression: a.opts.compression,
		Slots:       make([]persistence.SlotRecord, 0, a.slots.Cap()),
		Free:        a.slots.FreeList(),
	}

	var err error
	a.slots.RangeAll(func(index uint32, slot *slab.Slot[T]) bool {
		rec := persistence.SlotRecord{Generation: slot.Gen, Occupied: slot.Occupied}
		if slot.Occupied {
			if slot.Borrow.Mode() == BorrowExclusive {
				err = a.conflict(Handle{index: index, gen: slot.Gen}, BorrowShared, &slot.Borrow)
				return false
			}
			rec.Payload, err = a.opts.codec.Marshal(slot.Value)
			if err != nil {
				err = fmt.Errorf("encode slot %d: %w", index, err)
				return false
			}
		}
		img.Slots = append(img.Slots, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Restore rebuilds an arena from a snapshot written by Snapshot.
//
// The options apply to the new arena. When the snapshot was written with a
// different codec than the configured one, the codec named in the snapshot
// is used for decoding. Malformed input fails with ErrInvalidSnapshot; a
// snapshot that does not fit the slot limit or memory budget fails with
// ErrOutOfMemory.
func Restore[T any](ctx context.Context, r io.Reader, opts ...Option) (*Arena[T], error) {
	a, err := New[T](opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = a.restore(ctx, r)
	a.opts.metricsCollector.RecordRestore(a.slots.Cap(), time.Since(start), err)
	a.opts.logger.LogRestore(ctx, a.slots.Cap(), a.slots.Len(), err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Arena[T]) restore(ctx context.Context, r io.Reader) error {
	rc := a.opts.controller
	if err := rc.AcquireSnapshot(ctx); err != nil {
		return err
	}
	defer rc.ReleaseSnapshot()

	img, err := persistence.Decode(resource.NewRateLimitedReader(ctx, r, rc))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return invalidSnapshot(err)
	}

	c := a.opts.codec
	if img.Codec != c.Name() {
		var ok bool
		if c, ok = codec.ByName(img.Codec); !ok {
			return invalidSnapshot(fmt.Errorf("unknown codec %q", img.Codec))
		}
	}

	live := 0
	for _, rec := range img.Slots {
		if rec.Occupied {
			live++
		}
	}
	reserved := int64(live) * a.slotSize
	if err := rc.TryAcquireMemory(reserved); err != nil {
		return &OutOfMemoryError{Slots: len(img.Slots), Reason: "memory budget exhausted", cause: err}
	}

	if err := a.load(ctx, c, img); err != nil {
		rc.ReleaseMemory(reserved)
		return err
	}
	return nil
}

func (a *Arena[T]) load(ctx context.Context, c codec.Codec, img *persistence.Image) error {
	for i, rec := range img.Slots {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var v T
		if rec.Occupied {
			if err := c.Unmarshal(rec.Payload, &v); err != nil {
				return invalidSnapshot(fmt.Errorf("decode slot %d: %w", i, err))
			}
		}
		if err := a.slots.AppendRestored(rec.Generation, rec.Occupied, v); err != nil {
			if errors.Is(err, slab.ErrFull) {
				return &OutOfMemoryError{Slots: i, Reason: "slot limit reached", cause: err}
			}
			return invalidSnapshot(err)
		}
	}

	return invalidSnapshot(a.slots.RestoreFree(img.Free))
}

// SaveSnapshot writes a snapshot to store under name and then points the
// CURRENT blob at it.
func (a *Arena[T]) SaveSnapshot(ctx context.Context, store blobstore.Store, name string) error {
	if name == "" || name == blobstore.Current {
		return fmt.Errorf("invalid snapshot name %q", name)
	}

	var buf bytes.Buffer
	if _, err := a.Snapshot(ctx, &buf); err != nil {
		return err
	}
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("store snapshot %s: %w", name, err)
	}
	if err := store.Put(ctx, blobstore.Current, []byte(name)); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot restores the snapshot that the CURRENT blob of store points at.
// It returns an error matching blobstore.ErrNotFound if nothing was saved yet.
func LoadSnapshot[T any](ctx context.Context, store blobstore.Store, opts ...Option) (*Arena[T], error) {
	current, err := blobstore.Get(ctx, store, blobstore.Current)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", blobstore.Current, err)
	}
	name := string(bytes.TrimSpace(current))
	if name == "" {
		return nil, invalidSnapshot(fmt.Errorf("%s is empty", blobstore.Current))
	}
	return LoadSnapshotNamed[T](ctx, store, name, opts...)
}

// LoadSnapshotNamed restores the snapshot stored under name.
func LoadSnapshotNamed[T any](ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Arena[T], error) {
	data, err := blobstore.Get(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return Restore[T](ctx, bytes.NewReader(data), opts...)
}
