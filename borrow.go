package genarena

import "github.com/hupe1980/genarena/internal/borrow"

// BorrowMode is the kind of access held on a value.
type BorrowMode = borrow.Mode

const (
	// BorrowNone means no borrow is outstanding.
	BorrowNone = borrow.Free
	// BorrowShared is read access; any number may coexist.
	BorrowShared = borrow.Shared
	// BorrowExclusive is read/write access; it excludes every other borrow.
	BorrowExclusive = borrow.Exclusive
)

// BorrowInfo describes the borrows outstanding on a value.
type BorrowInfo struct {
	Mode   BorrowMode
	Shared uint32
}

// Borrow is a scoped claim of shared or exclusive access to a slot.
//
// Release must be called on every path out of the scope that acquired the
// borrow, typically with defer. Release is idempotent.
type Borrow struct {
	state    *borrow.State
	mode     BorrowMode
	handle   Handle
	released bool
}

// Release ends the borrow. Calling it more than once has no effect.
func (b *Borrow) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.state.Release(b.mode)
}

// Mode returns the kind of access held.
func (b *Borrow) Mode() BorrowMode { return b.mode }

// Handle returns the handle the borrow was taken on.
func (b *Borrow) Handle() Handle { return b.handle }

// Released reports whether Release has been called.
func (b *Borrow) Released() bool { return b.released }

const releasedPanic = "genarena: use of released borrow"

// Ref is a shared borrow with read access to the value.
type Ref[T any] struct {
	Borrow
	value *T
}

// Value returns a copy of the value. It panics after Release.
func (r *Ref[T]) Value() T {
	if r.released {
		panic(releasedPanic)
	}
	return *r.value
}

// Pointer returns a pointer to the value for reading without a copy.
// Writing through it breaks the aliasing contract. It panics after Release.
func (r *Ref[T]) Pointer() *T {
	if r.released {
		panic(releasedPanic)
	}
	return r.value
}

// Release ends the borrow. Calling it more than once has no effect.
func (r *Ref[T]) Release() {
	r.value = nil
	r.Borrow.Release()
}

// RefMut is an exclusive borrow with read/write access to the value.
type RefMut[T any] struct {
	Borrow
	value *T
}

// Value returns a pointer to the value. It panics after Release.
func (r *RefMut[T]) Value() *T {
	if r.released {
		panic(releasedPanic)
	}
	return r.value
}

// Set replaces the value. It panics after Release.
func (r *RefMut[T]) Set(v T) {
	if r.released {
		panic(releasedPanic)
	}
	*r.value = v
}

// Release ends the borrow. Calling it more than once has no effect.
func (r *RefMut[T]) Release() {
	r.value = nil
	r.Borrow.Release()
}
