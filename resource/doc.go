// Package resource limits the shared resources an arena consumes.
//
// The Controller manages three resource types:
//
//   - Memory: budget for slot storage (fail-fast TryAcquireMemory on insert)
//   - Snapshot workers: bound on concurrent snapshot writers
//   - IO: token-bucket limit on snapshot streams
//
// Memory tracking uses a weighted semaphore for hard limits and an atomic
// counter for usage:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.TryAcquireMemory(slotSize); err != nil {
//	    // ErrMemoryLimitExceeded - the arena reports ErrOutOfMemory
//	}
//	defer rc.ReleaseMemory(slotSize)
//
// Snapshot streams can be throttled with NewRateLimitedWriter and
// NewRateLimitedReader.
//
// All methods are safe for concurrent use and handle a nil Controller as
// "no limits".
package resource
