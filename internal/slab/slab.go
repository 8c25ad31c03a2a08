package slab

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/genarena/internal/borrow"
	"github.com/hupe1980/genarena/internal/container"
)

var (
	// ErrFull is returned when no slot can be allocated.
	ErrFull = errors.New("slab: full")
	// ErrCorrupt is returned when restored state is inconsistent.
	ErrCorrupt = errors.New("slab: corrupt state")
)

// MaxSlots is the size of the index space.
const MaxSlots = math.MaxUint32

// Slot is a single storage cell.
type Slot[T any] struct {
	Value    T
	Gen      uint64
	Occupied bool
	Borrow   borrow.State
}

// Live reports whether gen names the current occupancy of the slot.
func (s *Slot[T]) Live(gen uint64) bool {
	return s.Occupied && s.Gen == gen
}

// Slab owns slots and recycles vacated indices.
type Slab[T any] struct {
	slots    *container.SegmentedArray[Slot[T]]
	free     []uint32       // LIFO stack of vacant indices
	inFree   *bitset.BitSet // membership of free, guards against double push
	live     int
	retired  int
	maxSlots uint32
}

// New creates an empty slab. maxSlots <= 0 means the full index space.
func New[T any](maxSlots int, segmentBits int) *Slab[T] {
	limit := uint32(MaxSlots)
	if maxSlots > 0 && uint64(maxSlots) < MaxSlots {
		limit = uint32(maxSlots)
	}
	return &Slab[T]{
		slots:    container.NewSegmentedArray[Slot[T]](segmentBits),
		inFree:   bitset.New(0),
		maxSlots: limit,
	}
}

// Alloc occupies a slot with v and returns its index and new generation.
// reused reports whether the index came from the free list.
func (s *Slab[T]) Alloc(v T) (index uint32, gen uint64, reused bool, err error) {
	var slot *Slot[T]
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
		s.inFree.Clear(uint(index))
		slot = s.slots.At(index)
		reused = true
	} else {
		if s.slots.Len() >= s.maxSlots {
			return 0, 0, false, ErrFull
		}
		index, slot = s.slots.Append()
	}

	slot.Gen++
	slot.Occupied = true
	slot.Value = v
	s.live++
	return index, slot.Gen, reused, nil
}

// Lookup returns the slot at index, or nil if the index was never allocated.
func (s *Slab[T]) Lookup(index uint32) *Slot[T] {
	return s.slots.At(index)
}

// Vacate empties an occupied slot and returns its previous value.
// The generation is left unchanged; the next Alloc of this index bumps it.
func (s *Slab[T]) Vacate(index uint32) (T, bool) {
	var zero T
	slot := s.slots.At(index)
	if slot == nil || !slot.Occupied {
		return zero, false
	}

	v := slot.Value
	slot.Value = zero
	slot.Occupied = false
	s.live--

	if slot.Gen == math.MaxUint64 {
		s.retired++
		return v, true
	}
	s.push(index)
	return v, true
}

func (s *Slab[T]) push(index uint32) {
	if s.inFree.Test(uint(index)) {
		return
	}
	s.inFree.Set(uint(index))
	s.free = append(s.free, index)
}

// Clear vacates every occupied slot. Generations are kept so that handles
// issued before Clear stay stale.
func (s *Slab[T]) Clear() {
	s.slots.Range(func(index uint32, slot *Slot[T]) bool {
		if slot.Occupied {
			s.Vacate(index)
		}
		return true
	})
}

// Range calls fn for every occupied slot in index order until fn returns false.
func (s *Slab[T]) Range(fn func(index uint32, slot *Slot[T]) bool) {
	s.slots.Range(func(index uint32, slot *Slot[T]) bool {
		if !slot.Occupied {
			return true
		}
		return fn(index, slot)
	})
}

// RangeAll calls fn for every slot, occupied or not.
func (s *Slab[T]) RangeAll(fn func(index uint32, slot *Slot[T]) bool) {
	s.slots.Range(fn)
}

// Len returns the number of occupied slots.
func (s *Slab[T]) Len() int { return s.live }

// Cap returns the number of slots ever allocated.
func (s *Slab[T]) Cap() int { return int(s.slots.Len()) }

// FreeLen returns the number of indices waiting for reuse.
func (s *Slab[T]) FreeLen() int { return len(s.free) }

// Retired returns the number of slots whose generation is exhausted.
func (s *Slab[T]) Retired() int { return s.retired }

// Segments returns the number of allocated storage segments.
func (s *Slab[T]) Segments() int { return s.slots.Segments() }

// FreeList returns a copy of the free list, most recently vacated last.
func (s *Slab[T]) FreeList() []uint32 {
	out := make([]uint32, len(s.free))
	copy(out, s.free)
	return out
}

// AppendRestored appends a slot with an explicit generation. It is used to
// rebuild a slab from a snapshot and must be followed by RestoreFree.
func (s *Slab[T]) AppendRestored(gen uint64, occupied bool, v T) error {
	if s.slots.Len() >= s.maxSlots {
		return ErrFull
	}
	if occupied && gen == 0 {
		return fmt.Errorf("%w: occupied slot %d has generation 0", ErrCorrupt, s.slots.Len())
	}
	_, slot := s.slots.Append()
	slot.Gen = gen
	slot.Occupied = occupied
	if occupied {
		slot.Value = v
		s.live++
	}
	return nil
}

// RestoreFree installs the free list of a restored slab. Every vacant,
// non-retired slot must appear exactly once and retired slots never. Indices are pushed in the given
// order, so the last one is reused first.
func (s *Slab[T]) RestoreFree(free []uint32) error {
	s.free = s.free[:0]
	s.inFree.ClearAll()

	for _, index := range free {
		slot := s.slots.At(index)
		if slot == nil {
			return fmt.Errorf("%w: free index %d out of range", ErrCorrupt, index)
		}
		if slot.Occupied {
			return fmt.Errorf("%w: free index %d is occupied", ErrCorrupt, index)
		}
		if slot.Gen == math.MaxUint64 {
			return fmt.Errorf("%w: free index %d is retired", ErrCorrupt, index)
		}
		if s.inFree.Test(uint(index)) {
			return fmt.Errorf("%w: free index %d listed twice", ErrCorrupt, index)
		}
		s.push(index)
	}

	s.retired = 0
	var missing error
	s.slots.Range(func(index uint32, slot *Slot[T]) bool {
		if slot.Occupied || s.inFree.Test(uint(index)) {
			return true
		}
		if slot.Gen == math.MaxUint64 {
			s.retired++
			return true
		}
		missing = fmt.Errorf("%w: vacant index %d missing from free list", ErrCorrupt, index)
		return false
	})
	return missing
}
