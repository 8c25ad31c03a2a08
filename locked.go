package genarena

import (
	"context"
	"io"
	"sync"

	"github.com/hupe1980/genarena/blobstore"
)

// Locked serializes access to an Arena so it can be shared between
// goroutines.
//
// Borrow tokens never cross the lock: values are reached only through the
// closure helpers, which hold the lock for the duration of the callback.
// Callbacks must not call back into the same Locked.
type Locked[T any] struct {
	mu sync.Mutex
	a  *Arena[T]
}

// NewLocked wraps a. The caller must stop using a directly.
func NewLocked[T any](a *Arena[T]) *Locked[T] {
	return &Locked[T]{a: a}
}

// Insert is the locked form of Arena.Insert.
func (l *Locked[T]) Insert(v T) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Insert(v)
}

// Free is the locked form of Arena.Free.
func (l *Locked[T]) Free(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(h)
}

// Remove is the locked form of Arena.Remove.
func (l *Locked[T]) Remove(h Handle) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Remove(h)
}

// Read is the locked form of Arena.Read.
func (l *Locked[T]) Read(h Handle, fn func(v T) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Read(h, fn)
}

// Update is the locked form of Arena.Update.
func (l *Locked[T]) Update(h Handle, fn func(v *T) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Update(h, fn)
}

// Replace is the locked form of Arena.Replace.
func (l *Locked[T]) Replace(h Handle, v T) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Replace(h, v)
}

// Contains is the locked form of Arena.Contains.
func (l *Locked[T]) Contains(h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Contains(h)
}

// Len is the locked form of Arena.Len.
func (l *Locked[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Len()
}

// Stats is the locked form of Arena.Stats.
func (l *Locked[T]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// Snapshot is the locked form of Arena.Snapshot. Writers block until it
// returns.
func (l *Locked[T]) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Snapshot(ctx, w)
}

// SaveSnapshot is the locked form of Arena.SaveSnapshot.
func (l *Locked[T]) SaveSnapshot(ctx context.Context, store blobstore.Store, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.SaveSnapshot(ctx, store, name)
}

// Do runs fn with exclusive access to the underlying arena. Borrows taken
// inside fn must be released before it returns.
func (l *Locked[T]) Do(fn func(a *Arena[T]) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.a)
}
