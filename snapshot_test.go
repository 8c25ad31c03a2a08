package genarena

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genarena/blobstore"
	"github.com/hupe1980/genarena/codec"
	"github.com/hupe1980/genarena/persistence"
	"github.com/hupe1980/genarena/resource"
)

type node struct {
	Name string  `json:"name"`
	Next *Handle `json:"next,omitempty"`
}

// buildGraph leaves index 1 vacant and index 0 at generation 2.
func buildGraph(t *testing.T, opts ...Option) (*Arena[node], Handle, Handle, Handle) {
	t.Helper()
	a := newArena[node](t, opts...)

	old, err := a.Insert(node{Name: "old"})
	require.NoError(t, err)
	require.NoError(t, a.Free(old))

	head, err := a.Insert(node{Name: "head"})
	require.NoError(t, err)
	gone, err := a.Insert(node{Name: "gone"})
	require.NoError(t, err)
	tail, err := a.Insert(node{Name: "tail"})
	require.NoError(t, err)
	require.NoError(t, a.Free(gone))

	_, err = a.Replace(head, node{Name: "head", Next: &tail})
	require.NoError(t, err)
	return a, old, head, tail
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, c := range []persistence.Compression{persistence.CompressionNone, persistence.CompressionLZ4, persistence.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			a, old, head, tail := buildGraph(t, WithCompression(c))

			var buf bytes.Buffer
			n, err := a.Snapshot(ctx, &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)

			b, err := Restore[node](ctx, &buf)
			require.NoError(t, err)

			assert.Equal(t, a.Len(), b.Len())
			assert.Equal(t, a.Cap(), b.Cap())
			assert.Equal(t, a.FreeLen(), b.FreeLen())
			assert.False(t, b.Contains(old))

			require.NoError(t, b.Read(head, func(n node) error {
				require.NotNil(t, n.Next)
				assert.Equal(t, tail, *n.Next)
				return nil
			}))
			require.NoError(t, b.Read(tail, func(n node) error {
				assert.Equal(t, "tail", n.Name)
				return nil
			}))

			// the vacant slot is reused with a fresh generation
			h, err := b.Insert(node{Name: "new"})
			require.NoError(t, err)
			assert.Equal(t, uint32(1), h.Index())
			assert.Equal(t, uint64(2), h.Generation())
		})
	}
}

func TestSnapshot_FreeListOrder(t *testing.T) {
	ctx := context.Background()
	a := newArena[int](t)
	var hs []Handle
	for i := range 5 {
		h, err := a.Insert(i)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.NoError(t, a.Free(hs[1]))
	require.NoError(t, a.Free(hs[3]))

	var buf bytes.Buffer
	_, err := a.Snapshot(ctx, &buf)
	require.NoError(t, err)

	b, err := Restore[int](ctx, &buf)
	require.NoError(t, err)

	h, err := b.Insert(10)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h.Index())
	h, err = b.Insert(11)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h.Index())
	h, err = b.Insert(12)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), h.Index())
}

func TestSnapshot_BorrowRules(t *testing.T) {
	ctx := context.Background()
	a := newArena[int](t)
	h, err := a.Insert(1)
	require.NoError(t, err)

	ref, err := a.Get(h)
	require.NoError(t, err)
	_, err = a.Snapshot(ctx, &bytes.Buffer{})
	assert.NoError(t, err, "shared borrows do not block snapshots")
	ref.Release()

	mut, err := a.GetMut(h)
	require.NoError(t, err)
	_, err = a.Snapshot(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrBorrowConflict)
	mut.Release()
}

func TestSnapshot_CodecFallback(t *testing.T) {
	ctx := context.Background()
	a, _, head, _ := buildGraph(t, WithCodec(codec.JSON{}))

	var buf bytes.Buffer
	_, err := a.Snapshot(ctx, &buf)
	require.NoError(t, err)

	b, err := Restore[node](ctx, &buf, WithCodec(codec.GoJSON{}))
	require.NoError(t, err)
	assert.True(t, b.Contains(head))
}

// upperCodec stores strings upper-cased, so a restore that used the wrong
// codec would be visible.
type upperCodec struct{}

func (upperCodec) Name() string { return "test-upper" }

func (upperCodec) Marshal(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errors.New("upper: not a string")
	}
	return bytes.ToUpper([]byte(s)), nil
}

func (upperCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*string)
	if !ok {
		return errors.New("upper: not a *string")
	}
	*p = string(data)
	return nil
}

func TestSnapshot_RegisteredCodec(t *testing.T) {
	ctx := context.Background()
	if err := codec.Register(upperCodec{}); err != nil {
		require.ErrorIs(t, err, codec.ErrDuplicate)
	}

	a := newArena[string](t, WithCodec(upperCodec{}))
	h, err := a.Insert("quiet")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = a.Snapshot(ctx, &buf)
	require.NoError(t, err)

	// Restored with the default codec configured; the header names ours.
	b, err := Restore[string](ctx, &buf)
	require.NoError(t, err)
	require.NoError(t, b.Read(h, func(v string) error {
		assert.Equal(t, "QUIET", v)
		return nil
	}))
}

func TestRestore_Invalid(t *testing.T) {
	ctx := context.Background()
	a, _, _, _ := buildGraph(t)

	var buf bytes.Buffer
	_, err := a.Snapshot(ctx, &buf)
	require.NoError(t, err)
	good := buf.Bytes()

	t.Run("Garbage", func(t *testing.T) {
		_, err := Restore[node](ctx, bytes.NewReader([]byte("not a snapshot at all")))
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("FlippedByte", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[len(bad)/2] ^= 0xff
		_, err := Restore[node](ctx, bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
		assert.True(t, persistence.IsChecksumMismatch(err))
	})

	t.Run("WrongType", func(t *testing.T) {
		_, err := Restore[int](ctx, bytes.NewReader(good))
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("UnknownCodec", func(t *testing.T) {
		var raw bytes.Buffer
		_, err := persistence.Encode(&raw, &persistence.Image{Codec: "gob"})
		require.NoError(t, err)
		_, err = Restore[node](ctx, &raw)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("RetiredSlotOnFreeList", func(t *testing.T) {
		var raw bytes.Buffer
		_, err := persistence.Encode(&raw, &persistence.Image{
			Codec: codec.Default.Name(),
			Slots: []persistence.SlotRecord{{Generation: math.MaxUint64}},
			Free:  []uint32{0},
		})
		require.NoError(t, err)
		_, err = Restore[node](ctx, &raw)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("RetiredSlotStaysRetired", func(t *testing.T) {
		var raw bytes.Buffer
		_, err := persistence.Encode(&raw, &persistence.Image{
			Codec: codec.Default.Name(),
			Slots: []persistence.SlotRecord{{Generation: math.MaxUint64}},
		})
		require.NoError(t, err)
		b, err := Restore[node](ctx, &raw)
		require.NoError(t, err)
		assert.Equal(t, 1, b.Stats().Retired)

		h, err := b.Insert(node{Name: "fresh"})
		require.NoError(t, err)
		assert.Equal(t, uint32(1), h.Index())
		assert.Equal(t, uint64(1), h.Generation())
	})

	t.Run("TooManySlots", func(t *testing.T) {
		_, err := Restore[node](ctx, bytes.NewReader(good), WithMaxSlots(1))
		assert.ErrorIs(t, err, ErrOutOfMemory)
	})

	t.Run("MemoryBudget", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
		_, err := Restore[node](ctx, bytes.NewReader(good), WithResourceController(rc), WithSlotSize(8))
		assert.ErrorIs(t, err, ErrOutOfMemory)
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}

func TestRestore_ChargesMemory(t *testing.T) {
	ctx := context.Background()
	a, _, _, _ := buildGraph(t)

	var buf bytes.Buffer
	_, err := a.Snapshot(ctx, &buf)
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20, IOLimitBytesPerSec: 1 << 20})
	b, err := Restore[node](ctx, &buf, WithResourceController(rc), WithSlotSize(64))
	require.NoError(t, err)
	assert.Equal(t, int64(2*64), rc.MemoryUsage())
	assert.Equal(t, int64(2*64), b.Stats().MemoryReserved)
}

func TestSnapshot_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _, _, _ := buildGraph(t)
	_, err := a.Snapshot(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	local, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]blobstore.Store{
		"memory": blobstore.NewMemoryStore(),
		"local":  local,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSnapshot[node](ctx, store)
			require.ErrorIs(t, err, blobstore.ErrNotFound)

			a, _, head, _ := buildGraph(t)
			require.NoError(t, a.SaveSnapshot(ctx, store, "snapshots/0001.gar"))

			_, err = a.Replace(head, node{Name: "renamed"})
			require.NoError(t, err)
			require.NoError(t, a.SaveSnapshot(ctx, store, "snapshots/0002.gar"))

			b, err := LoadSnapshot[node](ctx, store)
			require.NoError(t, err)
			require.NoError(t, b.Read(head, func(n node) error {
				assert.Equal(t, "renamed", n.Name)
				return nil
			}))

			first, err := LoadSnapshotNamed[node](ctx, store, "snapshots/0001.gar")
			require.NoError(t, err)
			require.NoError(t, first.Read(head, func(n node) error {
				assert.Equal(t, "head", n.Name)
				return nil
			}))

			assert.Error(t, a.SaveSnapshot(ctx, store, blobstore.Current))
		})
	}
}

type failingStore struct {
	blobstore.Store
	failOn string
}

func (s failingStore) Put(ctx context.Context, name string, data []byte) error {
	if name == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, name, data)
}

func TestSaveSnapshot_CommitFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()

	a, _, head, _ := buildGraph(t)
	require.NoError(t, a.SaveSnapshot(ctx, mem, "one.gar"))

	_, err := a.Replace(head, node{Name: "changed"})
	require.NoError(t, err)
	err = a.SaveSnapshot(ctx, failingStore{Store: mem, failOn: blobstore.Current}, "two.gar")
	require.Error(t, err)

	b, err := LoadSnapshot[node](ctx, mem)
	require.NoError(t, err)
	require.NoError(t, b.Read(head, func(n node) error {
		assert.Equal(t, "head", n.Name)
		return nil
	}))

	// blob before pointer on every save
	assert.Equal(t, []string{"one.gar", blobstore.Current, "two.gar"}, mem.Puts())
}
