package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("summary.csv", []byte("Title\nPaint fence\n"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)

	// Deleting a missing file is not an error.
	assert.NoError(t, store.Delete(rel))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stale, err := store.Save("stale.csv", []byte("old"))
	require.NoError(t, err)
	fresh, err := store.Save("fresh.csv", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, stale), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, deleted)

	_, err = store.Open(stale)
	require.Error(t, err)
	file, err := store.Open(fresh)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
