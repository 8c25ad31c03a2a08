// Package container implements container data structures.
package container

const (
	// DefaultSegmentBits gives 1024 items per segment.
	DefaultSegmentBits = 10
	// MaxSegmentBits caps a single segment at 65536 items.
	MaxSegmentBits = 16
)

// SegmentedArray is an append-only array split into fixed-size segments.
//
// Growing never moves existing items, so pointers returned by At stay valid
// for the lifetime of the array. It is not safe for concurrent use.
type SegmentedArray[T any] struct {
	segments    [][]T
	segmentBits uint
	segmentMask uint32
	length      uint32
}

// NewSegmentedArray creates a new SegmentedArray with 1<<segmentBits items per segment.
// Values outside [1, MaxSegmentBits] fall back to DefaultSegmentBits.
func NewSegmentedArray[T any](segmentBits int) *SegmentedArray[T] {
	if segmentBits <= 0 || segmentBits > MaxSegmentBits {
		segmentBits = DefaultSegmentBits
	}
	return &SegmentedArray[T]{
		segmentBits: uint(segmentBits),
		segmentMask: uint32(1)<<segmentBits - 1,
	}
}

// Len returns the number of items appended so far.
func (sa *SegmentedArray[T]) Len() uint32 { return sa.length }

// SegmentSize returns the number of items per segment.
func (sa *SegmentedArray[T]) SegmentSize() int { return int(sa.segmentMask) + 1 }

// Segments returns the number of allocated segments.
func (sa *SegmentedArray[T]) Segments() int { return len(sa.segments) }

// At returns a pointer to the item at index, or nil if index is out of bounds.
func (sa *SegmentedArray[T]) At(index uint32) *T {
	if index >= sa.length {
		return nil
	}
	return &sa.segments[index>>sa.segmentBits][index&sa.segmentMask]
}

// Append adds a zero item and returns its index and a stable pointer to it.
// The caller must ensure Len() < math.MaxUint32.
func (sa *SegmentedArray[T]) Append() (uint32, *T) {
	index := sa.length
	segIdx := int(index >> sa.segmentBits)
	if segIdx == len(sa.segments) {
		sa.segments = append(sa.segments, make([]T, sa.SegmentSize()))
	}
	sa.length++
	return index, &sa.segments[segIdx][index&sa.segmentMask]
}

// Range calls fn for every item in index order until fn returns false.
func (sa *SegmentedArray[T]) Range(fn func(index uint32, item *T) bool) {
	for i := uint32(0); i < sa.length; i++ {
		if !fn(i, sa.At(i)) {
			return
		}
	}
}

// Reset drops all segments.
func (sa *SegmentedArray[T]) Reset() {
	sa.segments = nil
	sa.length = 0
}
