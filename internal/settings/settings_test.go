package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContentHashesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetContentHash(ctx, "patterns", "abc"))
	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(ctx, synced))
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	h, ok, err := s.ContentHash(ctx, "patterns")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", h)

	last, ok, err := s.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, synced.Equal(last))
}

func TestClear(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))
	ctx := context.Background()

	require.NoError(t, s.SetContentHash(ctx, "terminology", "x"))
	require.NoError(t, s.SetContentHash(ctx, "belt_system", "y"))
	require.NoError(t, s.Clear(ctx))

	for _, d := range []string{"terminology", "belt_system"} {
		_, ok, err := s.ContentHash(ctx, d)
		require.NoError(t, err)
		assert.False(t, ok, d)
	}
}
