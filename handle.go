package genarena

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle is an opaque, non-owning reference to a value held in an Arena.
//
// Handles are small values: copy them freely and compare them with ==. Two
// handles are equal iff they name the same slot at the same generation. A
// handle may outlive its value; staleness is detected at access time.
//
// The zero Handle never refers to a live value.
type Handle struct {
	index uint32
	gen   uint64
}

// Index returns the slot index.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the generation captured when the handle was created.
func (h Handle) Generation() uint64 { return h.gen }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// String formats the handle as "<index>v<generation>".
func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.index), 10) + "v" + strconv.FormatUint(h.gen, 10)
}

// MarshalText implements encoding.TextMarshaler, so handles can be stored in
// values that are themselves persisted in an arena snapshot.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHandle parses the output of Handle.String.
func ParseHandle(s string) (Handle, error) {
	idx, gen, ok := strings.Cut(s, "v")
	if !ok {
		return Handle{}, fmt.Errorf("invalid handle %q: missing generation", s)
	}
	index, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 64)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return Handle{index: uint32(index), gen: g}, nil
}
