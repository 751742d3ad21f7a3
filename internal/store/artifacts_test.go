package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStores_RoundTrip(t *testing.T) {
	sqliteStore, err := NewSQLiteArtifactStore("")
	require.NoError(t, err)
	defer sqliteStore.Close()

	stores := map[string]ArtifactStore{
		"file":   NewFileArtifactStore(t.TempDir()),
		"sqlite": sqliteStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			// Given: an artifact written twice
			require.False(t, s.Exists("lengths"))
			require.NoError(t, s.Put("lengths", map[int]int{1: 3}))
			require.NoError(t, s.Put("lengths", map[int]int{1: 4, 2: 2}))

			// When: reading it back
			var got map[int]int
			require.NoError(t, s.Get("lengths", &got))

			// Then: the last write wins
			assert.True(t, s.Exists("lengths"))
			assert.Equal(t, map[int]int{1: 4, 2: 2}, got)

			var missing []float32
			err := s.Get("absent", &missing)
			assert.True(t, errors.Is(err, apperrors.ErrCacheMissing))
		})
	}
}

func TestFileArtifactStore_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.gob"), []byte("not gob"), 0o644))

	var v map[string][]int
	err := NewFileArtifactStore(dir).Get("index", &v)

	assert.Equal(t, apperrors.ErrCodeFileCorrupt, apperrors.GetCode(err))
}

func TestOpenArtifactStore_UnknownBackend(t *testing.T) {
	_, err := OpenArtifactStore(t.TempDir(), "redis")

	assert.ErrorContains(t, err, "unknown cache backend")
}

func TestDetectBackend_EmptyDir(t *testing.T) {
	assert.Equal(t, Backend(""), DetectBackend(t.TempDir()))
	assert.Equal(t, filepath.Join("cache", "movies"), CorpusCacheDir("cache", "movies"))
}

func TestCacheLock_ExclusiveWithinProcess(t *testing.T) {
	dir := t.TempDir()
	first := NewCacheLock(dir)
	second := NewCacheLock(dir)

	require.NoError(t, first.Lock())
	acquired, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, first.Unlock())
	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, second.Unlock())
	require.NoError(t, second.Unlock(), "double unlock is a no-op")
}
