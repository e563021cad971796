package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initSQLiteTestDB(t *testing.T) Store {
	s, err := OpenSQLite(InMemorySQLite)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func cleanupSQLiteTestDB(t *testing.T) {
	// Each test gets its own in-memory database, closed in t.Cleanup
}

// TestSQLiteStore runs all store tests against in-memory sqlite
func TestSQLiteStore(t *testing.T) {
	RunStoreTests(t, initSQLiteTestDB, cleanupSQLiteTestDB)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracks.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SetBlockCursor(t.Context(), "1", 42))
	require.NoError(t, s.Close())

	// Reopening sees the persisted state
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	cursor, ok, err := s.GetBlockCursor(t.Context(), "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), cursor)
}
