package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"playtimed/internal/domain"
)

// mockStore implements domain.LedgerStore for testing
type mockStore struct {
	entries map[domain.LedgerKey]int64
	loadErr error
	saveErr error
	saves   int
}

func (m *mockStore) Load() (map[domain.LedgerKey]int64, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.entries, nil
}

func (m *mockStore) Save(entries map[domain.LedgerKey]int64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = entries
	m.saves++
	return nil
}

func (m *mockStore) Path() string { return "/dev/null" }
func (m *mockStore) Close() error { return nil }

func key(cmd string, pid int32, day string) domain.LedgerKey {
	return domain.LedgerKey{Command: cmd, PID: pid, Day: domain.Day(day)}
}

func TestOpen_EmptyStore(t *testing.T) {
	l, err := Open(&mockStore{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.DailyTotal(domain.Day("2024-01-01")))
}

func TestOpen_CorruptStore(t *testing.T) {
	store := &mockStore{loadErr: domain.ErrCorruptStore}
	_, err := Open(store, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptStore))
}

// Strictly increasing ages for one key must accumulate to the final
// age, never more (no double counting).
func TestUpdate_NoDoubleCounting(t *testing.T) {
	l, err := Open(&mockStore{}, zap.NewNop())
	require.NoError(t, err)

	k := key("game", 100, "2024-01-01")
	for _, age := range []int64{10, 20, 30, 45, 60} {
		l.Update(k, age)
	}

	assert.Equal(t, int64(60), l.DailyTotal(k.Day))
}

// A decreasing age between updates must never decrease the entry.
func TestUpdate_ClampsNegativeDelta(t *testing.T) {
	l, err := Open(&mockStore{}, zap.NewNop())
	require.NoError(t, err)

	k := key("game", 100, "2024-01-01")
	l.Update(k, 100)
	got := l.Update(k, 40) // simulated clock skew

	assert.Equal(t, int64(100), got)
	assert.Equal(t, int64(100), l.DailyTotal(k.Day))

	// Accounting resumes from the new baseline.
	got = l.Update(k, 50)
	assert.Equal(t, int64(110), got)
}

func TestUpdate_NegativeAgeTreatedAsZero(t *testing.T) {
	l, err := Open(&mockStore{}, zap.NewNop())
	require.NoError(t, err)

	got := l.Update(key("game", 100, "2024-01-01"), -5)
	assert.Equal(t, int64(0), got)
}

// First observation of a persisted key after a restart must resume
// from max(persisted, reported), not add the two.
func TestUpdate_ResumesAfterRestart(t *testing.T) {
	store := &mockStore{entries: map[domain.LedgerKey]int64{
		key("game", 100, "2024-01-01"): 3600,
	}}
	l, err := Open(store, zap.NewNop())
	require.NoError(t, err)

	got := l.Update(key("game", 100, "2024-01-01"), 3700)
	assert.Equal(t, int64(3700), got)
	assert.Equal(t, int64(3700), l.DailyTotal(domain.Day("2024-01-01")))
}

// If the persisted value exceeds the reported age (the process was
// restarted with the same pid), the larger persisted value wins.
func TestUpdate_PersistedValueWinsWhenLarger(t *testing.T) {
	store := &mockStore{entries: map[domain.LedgerKey]int64{
		key("game", 100, "2024-01-01"): 3600,
	}}
	l, err := Open(store, zap.NewNop())
	require.NoError(t, err)

	got := l.Update(key("game", 100, "2024-01-01"), 200)
	assert.Equal(t, int64(3600), got)

	// Delta accounting continues from the observed age.
	got = l.Update(key("game", 100, "2024-01-01"), 260)
	assert.Equal(t, int64(3660), got)
}

func TestDailyTotal_AggregatesAcrossKeysSameDay(t *testing.T) {
	l, err := Open(&mockStore{}, zap.NewNop())
	require.NoError(t, err)

	l.Update(key("game", 100, "2024-01-01"), 100)
	l.Update(key("game", 200, "2024-01-01"), 50)
	l.Update(key("browser", 300, "2024-01-01"), 25)
	l.Update(key("game", 100, "2024-01-02"), 999)

	assert.Equal(t, int64(175), l.DailyTotal(domain.Day("2024-01-01")))
	assert.Equal(t, int64(999), l.DailyTotal(domain.Day("2024-01-02")))
	assert.Equal(t, int64(0), l.DailyTotal(domain.Day("2024-01-03")))
}

func TestPersist_WritesAllEntries(t *testing.T) {
	store := &mockStore{}
	l, err := Open(store, zap.NewNop())
	require.NoError(t, err)

	l.Update(key("game", 100, "2024-01-01"), 42)
	require.NoError(t, l.Persist())

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, int64(42), store.entries[key("game", 100, "2024-01-01")])
}

func TestPersist_PropagatesError(t *testing.T) {
	store := &mockStore{saveErr: errors.New("disk full")}
	l, err := Open(store, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, l.Persist())
}
