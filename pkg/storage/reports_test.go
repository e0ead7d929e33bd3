package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReportStoreSaveAndOpen(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("u1/report.csv", []byte("date,worked\n"))
	require.NoError(t, err)
	require.Equal(t, "u1/report.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "date,worked\n", string(content))
}

func TestReportStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Delete("u1/missing.csv"))
}

func TestReportStoreCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)

	_, err = store.Save("u1/old.csv", []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "u1/old.csv"), stale, stale))

	_, err = store.Save("u1/fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("u1", "old.csv")}, removed)

	file, err := store.Open("u1/fresh.csv")
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
