package blobstore

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genarena/internal/fs"
)

func TestLocalStore_FailedPutKeepsPrevious(t *testing.T) {
	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"short write", fs.Fault{FailAfterBytes: 3}},
		{"sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()
			ffs := fs.NewFaultyFS(nil)
			s, err := newLocalStore(root, ffs)
			require.NoError(t, err)

			require.NoError(t, s.Put(ctx, "snap.gar", []byte("old snapshot")))

			ffs.AddRule("snap.gar", tt.fault)
			err = s.Put(ctx, "snap.gar", []byte("new snapshot"))
			require.ErrorIs(t, err, fs.ErrInjected)

			ffs.ClearRules()
			data, err := Get(ctx, s, "snap.gar")
			require.NoError(t, err)
			assert.Equal(t, "old snapshot", string(data))

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
			}
		})
	}
}

func TestLocalStore_FaultOnlyHitsMatchingBlob(t *testing.T) {
	ctx := context.Background()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("broken", fs.Fault{FailAfterBytes: 0})
	s, err := newLocalStore(t.TempDir(), ffs)
	require.NoError(t, err)

	require.Error(t, s.Put(ctx, "broken", []byte("x")))
	require.NoError(t, s.Put(ctx, "fine", []byte("x")))

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fine"}, names)
}

func TestLocalStore_Nested(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "arenas/a/1.gar", []byte("1")))
	require.NoError(t, s.Put(ctx, "arenas/b/2.gar", []byte("2")))
	require.NoError(t, s.Put(ctx, "other", []byte("3")))

	names, err := s.List(ctx, "arenas/")
	require.NoError(t, err)
	assert.Equal(t, []string{"arenas/a/1.gar", "arenas/b/2.gar"}, names)

	require.NoError(t, s.Delete(ctx, "arenas/a/1.gar"))
	require.NoError(t, s.Delete(ctx, "arenas/a/1.gar"))
	_, err = s.Open(ctx, "arenas/a/1.gar")
	assert.ErrorIs(t, err, ErrNotFound)
}
