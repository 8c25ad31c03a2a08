// Package codec encodes slot values for snapshots.
//
// A snapshot records the name of the codec that wrote it, and restoring
// looks that name up here. Codecs beyond the built-in JSON ones must be
// registered under the same name in every process that reads the snapshot.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Codec encodes and decodes slot values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name identifies the codec inside snapshots. It must be stable and at
	// most 255 bytes long.
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ErrDuplicate is returned by Register for a name that is already taken.
var ErrDuplicate = errors.New("codec already registered")

var (
	mu       sync.RWMutex
	registry = map[string]Codec{
		JSON{}.Name():   JSON{},
		GoJSON{}.Name(): GoJSON{},
	}
)

// Register makes c available to ByName, and so to Restore.
func Register(c Codec) error {
	name := c.Name()
	if name == "" || len(name) > 255 {
		return fmt.Errorf("codec: invalid name %q", name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	registry[name] = c
	return nil
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
