// Package genarena provides a generational arena with runtime borrow checking.
//
// An Arena owns values of one type. Insert returns a Handle: a small, copyable
// pair of slot index and generation. Handles do not keep values alive; they
// are checked on every access instead. When a value is freed its slot is
// recycled under a new generation, so an old handle to it fails with
// ErrStaleHandle rather than reaching whatever took its place.
//
// # Quick Start
//
//	arena, _ := genarena.New[Player]()
//	h, _ := arena.Insert(Player{Name: "ada"})
//
//	_ = arena.Read(h, func(p Player) error {
//	    fmt.Println(p.Name)
//	    return nil
//	})
//
//	_ = arena.Free(h)
//	err := arena.Read(h, ...)  // errors.Is(err, genarena.ErrStaleHandle)
//
// # Borrows
//
// Every access is a borrow. Any number of shared borrows may coexist; an
// exclusive borrow excludes all others. A conflicting request fails with
// ErrBorrowConflict instead of blocking:
//
//	ref, _ := arena.Get(h)       // shared
//	defer ref.Release()
//	_, err := arena.GetMut(h)    // ErrBorrowConflict while ref is held
//
// Read, Update and Replace scope the borrow to a callback and release it on
// every exit path. Freeing a value with borrows outstanding is refused.
//
// # Resource Limits
//
// WithMaxSlots bounds the slot count and WithResourceController charges each
// live value against a shared memory budget. Either limit makes Insert fail
// with ErrOutOfMemory.
//
// # Snapshots
//
// Snapshot writes the arena, generations included, in a checksummed and
// optionally compressed format; Restore reads it back so that handles taken
// before the snapshot still resolve. SaveSnapshot and LoadSnapshot move
// snapshots through a blobstore.Store (local disk, S3, MinIO) behind a
// CURRENT pointer.
//
// # Concurrency
//
// Arena is single-threaded and does no locking. Locked wraps an Arena in a
// mutex for use from several goroutines.
package genarena
