package genarena

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleHandle is returned when a handle's generation no longer matches
	// its slot: the value was freed, or the slot was reused.
	// The caller should discard or re-fetch the handle.
	ErrStaleHandle = errors.New("stale handle")

	// ErrBorrowConflict is returned when the requested access conflicts with
	// an outstanding borrow. Release the conflicting borrows and retry.
	ErrBorrowConflict = errors.New("borrow conflict")

	// ErrOutOfMemory is returned by Insert when backing storage cannot grow.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidSnapshot is returned when a snapshot cannot be restored.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// StaleHandleError reports a handle that does not name a live value.
//
// It matches ErrStaleHandle with errors.Is.
type StaleHandleError struct {
	Handle Handle
	// Current is the slot's generation at the time of the access
	// (0 if the index was never allocated).
	Current uint64
	// Occupied reports whether the slot currently holds a value.
	Occupied bool
}

func (e *StaleHandleError) Error() string {
	if !e.Occupied {
		return fmt.Sprintf("stale handle %s: slot is vacant (generation %d)", e.Handle, e.Current)
	}
	return fmt.Sprintf("stale handle %s: slot is at generation %d", e.Handle, e.Current)
}

func (e *StaleHandleError) Is(target error) bool { return target == ErrStaleHandle }

// BorrowConflictError reports a refused borrow.
//
// It matches ErrBorrowConflict with errors.Is.
type BorrowConflictError struct {
	Handle    Handle
	Requested BorrowMode
	Held      BorrowMode
	// Shared is the number of outstanding shared borrows.
	Shared uint32
}

func (e *BorrowConflictError) Error() string {
	held := e.Held.String()
	if e.Held == BorrowShared {
		held = fmt.Sprintf("%d shared", e.Shared)
	}
	return fmt.Sprintf("borrow conflict on %s: %s access requested while %s borrow held", e.Handle, e.Requested, held)
}

func (e *BorrowConflictError) Is(target error) bool { return target == ErrBorrowConflict }

// OutOfMemoryError reports why Insert could not grow the arena.
//
// It matches ErrOutOfMemory with errors.Is. The underlying error
// (if any) can be accessed via errors.Unwrap.
type OutOfMemoryError struct {
	// Slots is the number of slots allocated when the insert failed.
	Slots  int
	Reason string
	cause  error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory after %d slots: %s", e.Slots, e.Reason)
}

func (e *OutOfMemoryError) Is(target error) bool { return target == ErrOutOfMemory }

func (e *OutOfMemoryError) Unwrap() error { return e.cause }

func invalidSnapshot(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
}

func isStale(err error) bool { return errors.Is(err, ErrStaleHandle) }
