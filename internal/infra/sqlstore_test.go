package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playtimed/internal/domain"
)

func newTestSQLStore(t *testing.T) *SQLLedgerStore {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLLedgerStore(filepath.Join(t.TempDir(), "ledger.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_EmptyDatabase(t *testing.T) {
	store := newTestSQLStore(t)

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLStore_RoundTrip(t *testing.T) {
	store := newTestSQLStore(t)

	want := map[domain.LedgerKey]int64{
		testKey("steam", 4242, "2024-01-01"):    3600,
		testKey("steam", 9001, "2024-01-01"):    120,
		testKey("minecraft", 555, "2024-01-02"): 7,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLStore_SaveReplacesPreviousState(t *testing.T) {
	store := newTestSQLStore(t)

	require.NoError(t, store.Save(map[domain.LedgerKey]int64{
		testKey("old", 1, "2024-01-01"): 10,
	}))
	require.NoError(t, store.Save(map[domain.LedgerKey]int64{
		testKey("new", 2, "2024-01-02"): 20,
	}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(20), got[testKey("new", 2, "2024-01-02")])
}

func TestSQLStore_ReopenWithSameKey(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLLedgerStore(dbPath, key)
	require.NoError(t, err)
	require.NoError(t, store.Save(map[domain.LedgerKey]int64{
		testKey("steam", 4242, "2024-01-01"): 3600,
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLLedgerStore(dbPath, key)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got[testKey("steam", 4242, "2024-01-01")])
}

func TestSQLStore_GarbageFileIsCorrupt(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a database"), 0600))

	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLLedgerStore(dbPath, key)
	if err == nil {
		// Some failure modes only surface on first query.
		_, err = store.Load()
		store.Close()
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptStore))
}
