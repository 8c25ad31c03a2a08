package genarena

import (
	"errors"
	"fmt"
	"iter"
	"time"
	"unsafe"

	"github.com/hupe1980/genarena/internal/borrow"
	"github.com/hupe1980/genarena/internal/slab"
)

// Arena owns values of type T and hands out generation-checked handles.
//
// An Arena is not safe for concurrent use. Wrap it in Locked to share it
// between goroutines.
type Arena[T any] struct {
	slots    *slab.Slab[T]
	opts     options
	slotSize int64

	inserts   uint64
	frees     uint64
	stale     uint64
	conflicts uint64
}

// New creates an empty arena.
func New[T any](opts ...Option) (*Arena[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	slotSize := o.slotSize
	if slotSize == 0 {
		var s slab.Slot[T]
		slotSize = int64(unsafe.Sizeof(s))
	}

	return &Arena[T]{
		slots:    slab.New[T](o.maxSlots, o.segmentBits),
		opts:     o,
		slotSize: slotSize,
	}, nil
}

// Insert stores v and returns a handle to it. A vacant slot is reused if
// one exists; its generation is incremented so earlier handles stay stale.
//
// Insert fails with ErrOutOfMemory when the slot limit or the memory budget
// of the resource controller is exhausted.
func (a *Arena[T]) Insert(v T) (Handle, error) {
	start := time.Now()
	h, err := a.insert(v)
	a.opts.metricsCollector.RecordInsert(time.Since(start), err)
	a.opts.logger.LogInsert(h, err)
	return h, err
}

func (a *Arena[T]) insert(v T) (Handle, error) {
	if err := a.opts.controller.TryAcquireMemory(a.slotSize); err != nil {
		return Handle{}, &OutOfMemoryError{Slots: a.slots.Cap(), Reason: "memory budget exhausted", cause: err}
	}

	index, gen, _, err := a.slots.Alloc(v)
	if err != nil {
		a.opts.controller.ReleaseMemory(a.slotSize)
		return Handle{}, &OutOfMemoryError{Slots: a.slots.Cap(), Reason: "slot limit reached", cause: err}
	}

	a.inserts++
	return Handle{index: index, gen: gen}, nil
}

// Free drops the value referenced by h and makes its slot reusable.
//
// Free fails with ErrStaleHandle if h is not live, which includes freeing
// the same handle twice, and with ErrBorrowConflict while any borrow on the
// value is outstanding.
func (a *Arena[T]) Free(h Handle) error {
	_, err := a.Remove(h)
	return err
}

// Remove is Free that also returns the dropped value.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	start := time.Now()
	v, err := a.remove(h)
	a.opts.metricsCollector.RecordFree(time.Since(start), err)
	a.opts.logger.LogFree(h, err)
	return v, err
}

func (a *Arena[T]) remove(h Handle) (T, error) {
	var zero T
	slot, err := a.lookup(h)
	if err != nil {
		return zero, err
	}
	if !slot.Borrow.Idle() {
		return zero, a.conflict(h, BorrowExclusive, &slot.Borrow)
	}

	v, _ := a.slots.Vacate(h.index)
	a.opts.controller.ReleaseMemory(a.slotSize)
	a.frees++
	return v, nil
}

func (a *Arena[T]) lookup(h Handle) (*slab.Slot[T], error) {
	slot := a.slots.Lookup(h.index)
	if slot == nil {
		a.stale++
		return nil, &StaleHandleError{Handle: h}
	}
	if !slot.Live(h.gen) {
		a.stale++
		return nil, &StaleHandleError{Handle: h, Current: slot.Gen, Occupied: slot.Occupied}
	}
	return slot, nil
}

func (a *Arena[T]) conflict(h Handle, requested BorrowMode, state *borrow.State) error {
	a.conflicts++
	return &BorrowConflictError{
		Handle:    h,
		Requested: requested,
		Held:      state.Mode(),
		Shared:    state.Shared(),
	}
}

func (a *Arena[T]) begin(h Handle, mode BorrowMode) (*slab.Slot[T], error) {
	slot, err := a.lookup(h)
	if err == nil {
		ok := false
		if mode == BorrowExclusive {
			ok = slot.Borrow.TryExclusive()
		} else {
			ok = slot.Borrow.TryShared()
		}
		if !ok {
			err = a.conflict(h, mode, &slot.Borrow)
		}
	}
	a.opts.metricsCollector.RecordBorrow(mode, err)
	a.opts.logger.LogAccess(h, mode, err)
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// BeginShared takes a shared borrow on the value referenced by h.
// It fails with ErrBorrowConflict while an exclusive borrow is active.
func (a *Arena[T]) BeginShared(h Handle) (*Borrow, error) {
	slot, err := a.begin(h, BorrowShared)
	if err != nil {
		return nil, err
	}
	return &Borrow{state: &slot.Borrow, mode: BorrowShared, handle: h}, nil
}

// BeginExclusive takes an exclusive borrow on the value referenced by h.
// It fails with ErrBorrowConflict while any other borrow is active.
func (a *Arena[T]) BeginExclusive(h Handle) (*Borrow, error) {
	slot, err := a.begin(h, BorrowExclusive)
	if err != nil {
		return nil, err
	}
	return &Borrow{state: &slot.Borrow, mode: BorrowExclusive, handle: h}, nil
}

// Get returns a shared borrow with read access to the value.
//
//	ref, err := a.Get(h)
//	if err != nil {
//	    return err
//	}
//	defer ref.Release()
func (a *Arena[T]) Get(h Handle) (*Ref[T], error) {
	slot, err := a.begin(h, BorrowShared)
	if err != nil {
		return nil, err
	}
	return &Ref[T]{
		Borrow: Borrow{state: &slot.Borrow, mode: BorrowShared, handle: h},
		value:  &slot.Value,
	}, nil
}

// GetMut returns an exclusive borrow with read/write access to the value.
func (a *Arena[T]) GetMut(h Handle) (*RefMut[T], error) {
	slot, err := a.begin(h, BorrowExclusive)
	if err != nil {
		return nil, err
	}
	return &RefMut[T]{
		Borrow: Borrow{state: &slot.Borrow, mode: BorrowExclusive, handle: h},
		value:  &slot.Value,
	}, nil
}

// Read calls fn with the value under a shared borrow. The borrow is released
// when fn returns or panics.
func (a *Arena[T]) Read(h Handle, fn func(v T) error) error {
	ref, err := a.Get(h)
	if err != nil {
		return err
	}
	defer ref.Release()
	return fn(*ref.value)
}

// Update calls fn with a pointer to the value under an exclusive borrow. The
// borrow is released when fn returns or panics. fn must not retain the pointer.
func (a *Arena[T]) Update(h Handle, fn func(v *T) error) error {
	ref, err := a.GetMut(h)
	if err != nil {
		return err
	}
	defer ref.Release()
	return fn(ref.value)
}

// Replace swaps in v and returns the previous value.
func (a *Arena[T]) Replace(h Handle, v T) (T, error) {
	var old T
	err := a.Update(h, func(cur *T) error {
		old, *cur = *cur, v
		return nil
	})
	return old, err
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	slot := a.slots.Lookup(h.index)
	return slot != nil && slot.Live(h.gen)
}

// Borrows reports the borrows outstanding on the value referenced by h.
func (a *Arena[T]) Borrows(h Handle) (BorrowInfo, error) {
	slot, err := a.lookup(h)
	if err != nil {
		return BorrowInfo{}, err
	}
	return BorrowInfo{Mode: slot.Borrow.Mode(), Shared: slot.Borrow.Shared()}, nil
}

// All iterates over live values in index order. Each value is held under a
// shared borrow while the loop body runs; values under an exclusive borrow
// are skipped.
func (a *Arena[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		a.slots.Range(func(index uint32, slot *slab.Slot[T]) bool {
			if !slot.Borrow.TryShared() {
				return true
			}
			defer slot.Borrow.ReleaseShared()
			return yield(Handle{index: index, gen: slot.Gen}, slot.Value)
		})
	}
}

// Handles returns the handles of all live values in index order.
func (a *Arena[T]) Handles() []Handle {
	out := make([]Handle, 0, a.slots.Len())
	a.slots.Range(func(index uint32, slot *slab.Slot[T]) bool {
		out = append(out, Handle{index: index, gen: slot.Gen})
		return true
	})
	return out
}

// Clear frees every value. Every handle issued so far becomes stale.
// Clear fails with ErrBorrowConflict while any borrow is outstanding.
func (a *Arena[T]) Clear() error {
	var err error
	a.slots.Range(func(index uint32, slot *slab.Slot[T]) bool {
		if !slot.Borrow.Idle() {
			err = a.conflict(Handle{index: index, gen: slot.Gen}, BorrowExclusive, &slot.Borrow)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	live := a.slots.Len()
	a.slots.Clear()
	a.opts.controller.ReleaseMemory(int64(live) * a.slotSize)
	a.frees += uint64(live)
	a.opts.logger.Debug("arena cleared", "freed", live)
	return nil
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.slots.Len() }

// Cap returns the number of slots allocated so far.
func (a *Arena[T]) Cap() int { return a.slots.Cap() }

// FreeLen returns the number of vacant slots waiting for reuse.
func (a *Arena[T]) FreeLen() int { return a.slots.FreeLen() }

// Stats describes the arena.
type Stats struct {
	Live     int // occupied slots
	Slots    int // allocated slots
	Free     int // vacant slots on the free list
	Retired  int // slots whose generation is exhausted
	Segments int // storage segments

	Inserts         uint64
	Frees           uint64
	StaleAccesses   uint64
	BorrowConflicts uint64

	SlotSize       int64 // bytes charged per live value
	MemoryReserved int64 // bytes charged to the resource controller
}

// Stats returns the current arena statistics.
func (a *Arena[T]) Stats() Stats {
	return Stats{
		Live:            a.slots.Len(),
		Slots:           a.slots.Cap(),
		Free:            a.slots.FreeLen(),
		Retired:         a.slots.Retired(),
		Segments:        a.slots.Segments(),
		Inserts:         a.inserts,
		Frees:           a.frees,
		StaleAccesses:   a.stale,
		BorrowConflicts: a.conflicts,
		SlotSize:        a.slotSize,
		MemoryReserved:  int64(a.slots.Len()) * a.slotSize,
	}
}

func (a *Arena[T]) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{live: %d, slots: %d, free: %d, retired: %d, inserts: %d, frees: %d, stale: %d, conflicts: %d}",
		s.Live, s.Slots, s.Free, s.Retired, s.Inserts, s.Frees, s.StaleAccesses, s.BorrowConflicts,
	)
}

// IsStale reports whether err was caused by a stale handle.
func IsStale(err error) bool { return isStale(err) }

// IsBorrowConflict reports whether err was caused by a borrow conflict.
func IsBorrowConflict(err error) bool { return errors.Is(err, ErrBorrowConflict) }
