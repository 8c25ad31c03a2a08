package genarena

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// metric provides a Prometheus implementation.
//
// Collectors shared between arenas must be safe for concurrent use.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordFree is called after each free operation.
	RecordFree(duration time.Duration, err error)

	// RecordBorrow is called after each borrow attempt (Get, GetMut,
	// BeginShared, BeginExclusive and the closure helpers).
	RecordBorrow(mode BorrowMode, err error)

	// RecordSnapshot is called after each snapshot with the encoded size.
	RecordSnapshot(bytes int64, duration time.Duration, err error)

	// RecordRestore is called after each restore with the number of slots read.
	RecordRestore(slots int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)          {}
func (NoopMetricsCollector) RecordFree(time.Duration, error)            {}
func (NoopMetricsCollector) RecordBorrow(BorrowMode, error)             {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRestore(int, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	FreeCount        atomic.Int64
	FreeErrors       atomic.Int64
	SharedBorrows    atomic.Int64
	ExclusiveBorrows atomic.Int64
	StaleAccesses    atomic.Int64
	BorrowConflicts  atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotErrors   atomic.Int64
	SnapshotBytes    atomic.Int64
	RestoreCount     atomic.Int64
	RestoreErrors    atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(_ time.Duration, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
	}
}

// RecordBorrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBorrow(mode BorrowMode, err error) {
	switch {
	case isStale(err):
		b.StaleAccesses.Add(1)
	case err != nil:
		b.BorrowConflicts.Add(1)
	case mode == BorrowExclusive:
		b.ExclusiveBorrows.Add(1)
	default:
		b.SharedBorrows.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(bytes)
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(_ int, _ time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		InsertAvgNanos:   b.getAvgInsertNanos(),
		FreeCount:        b.FreeCount.Load(),
		FreeErrors:       b.FreeErrors.Load(),
		SharedBorrows:    b.SharedBorrows.Load(),
		ExclusiveBorrows: b.ExclusiveBorrows.Load(),
		StaleAccesses:    b.StaleAccesses.Load(),
		BorrowConflicts:  b.BorrowConflicts.Load(),
		SnapshotCount:    b.SnapshotCount.Load(),
		SnapshotErrors:   b.SnapshotErrors.Load(),
		SnapshotBytes:    b.SnapshotBytes.Load(),
		RestoreCount:     b.RestoreCount.Load(),
		RestoreErrors:    b.RestoreErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgInsertNanos() int64 {
	count := b.InsertCount.Load()
	if count == 0 {
		return 0
	}
	return b.InsertTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	InsertAvgNanos   int64
	FreeCount        int64
	FreeErrors       int64
	SharedBorrows    int64
	ExclusiveBorrows int64
	StaleAccesses    int64
	BorrowConflicts  int64
	SnapshotCount    int64
	SnapshotErrors   int64
	SnapshotBytes    int64
	RestoreCount     int64
	RestoreErrors    int64
}
