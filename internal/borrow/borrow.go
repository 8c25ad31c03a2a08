package borrow

import (
	"fmt"
	"math"
)

// Mode is the kind of access held on a slot.
type Mode uint8

const (
	// Free means no borrow is outstanding.
	Free Mode = iota
	// Shared means one or more readers hold the slot.
	Shared
	// Exclusive means a single writer holds the slot.
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Free:
		return "free"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// State is the borrow state of a single slot. The zero value is Free.
type State struct {
	shared    uint32
	exclusive bool
}

// TryShared registers a shared borrow. It reports false if an exclusive
// borrow is active or the reader count would overflow.
func (s *State) TryShared() bool {
	if s.exclusive || s.shared == math.MaxUint32 {
		return false
	}
	s.shared++
	return true
}

// TryExclusive registers an exclusive borrow. It reports false if any borrow
// is active.
func (s *State) TryExclusive() bool {
	if s.exclusive || s.shared > 0 {
		return false
	}
	s.exclusive = true
	return true
}

// ReleaseShared drops one shared borrow.
// It panics if no shared borrow is held.
func (s *State) ReleaseShared() {
	if s.shared == 0 {
		panic("borrow: release of unheld shared borrow")
	}
	s.shared--
}

// ReleaseExclusive drops the exclusive borrow.
// It panics if no exclusive borrow is held.
func (s *State) ReleaseExclusive() {
	if !s.exclusive {
		panic("borrow: release of unheld exclusive borrow")
	}
	s.exclusive = false
}

// Release drops a borrow of the given mode.
func (s *State) Release(m Mode) {
	switch m {
	case Shared:
		s.ReleaseShared()
	case Exclusive:
		s.ReleaseExclusive()
	}
}

// Mode returns the current state.
func (s *State) Mode() Mode {
	switch {
	case s.exclusive:
		return Exclusive
	case s.shared > 0:
		return Shared
	default:
		return Free
	}
}

// Shared returns the number of active shared borrows.
func (s *State) Shared() uint32 { return s.shared }

// Idle reports whether no borrow is outstanding.
func (s *State) Idle() bool { return !s.exclusive && s.shared == 0 }

func (s State) String() string {
	switch s.Mode() {
	case Shared:
		return fmt.Sprintf("shared(%d)", s.shared)
	default:
		return s.Mode().String()
	}
}
