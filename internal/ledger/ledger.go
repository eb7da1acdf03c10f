// Package ledger implements the persistent time-accounting core.
// It tracks accumulated seconds per (command, pid, day) key, updated
// from live process ages, and mirrors the map to a durable store.
package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"playtimed/internal/domain"
)

// Ledger is the in-memory time ledger backed by a durable store.
// Not safe for concurrent use; the scheduler owns the single instance
// and calls it from one goroutine.
type Ledger struct {
	entries map[domain.LedgerKey]int64
	// lastAge records the process age seen at the previous observation
	// of each key during this run. Never persisted: after a restart
	// the first observation resumes from max(persisted, reported).
	lastAge map[domain.LedgerKey]int64
	store   domain.LedgerStore
	logger  *zap.Logger
}

// Open loads the full ledger from store. A missing store yields an
// empty ledger; an unreadable one fails with domain.ErrCorruptStore.
func Open(store domain.LedgerStore, logger *zap.Logger) (*Ledger, error) {
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if entries == nil {
		entries = make(map[domain.LedgerKey]int64)
	}

	logger.Info("ledger loaded",
		zap.String("store", store.Path()),
		zap.Int("entries", len(entries)))

	return &Ledger{
		entries: entries,
		lastAge: make(map[domain.LedgerKey]int64),
		store:   store,
		logger:  logger,
	}, nil
}

// Update accounts an observed process age against key and returns the
// key's accumulated seconds.
//
// The reported age is itself monotonically increasing for a live
// process, so only the delta since the previous observation of this
// exact key is added; re-adding the full age every tick would double
// count. A negative delta (age went backwards) is clamped to zero so
// the entry never decreases.
func (l *Ledger) Update(key domain.LedgerKey, ageSeconds int64) int64 {
	if ageSeconds < 0 {
		ageSeconds = 0
	}

	prev, seenThisRun := l.lastAge[key]
	current, exists := l.entries[key]

	switch {
	case !exists:
		l.entries[key] = ageSeconds
	case !seenThisRun:
		// First observation after a restart: the persisted value and
		// the reported age describe the same process lifetime, so take
		// the larger rather than summing them.
		if ageSeconds > current {
			l.entries[key] = ageSeconds
		}
	default:
		delta := ageSeconds - prev
		if delta < 0 {
			delta = 0
		}
		l.entries[key] = current + delta
	}

	l.lastAge[key] = ageSeconds
	return l.entries[key]
}

// DailyTotal sums accumulated seconds over all keys for day. It is
// recomputed on every call so decisions always see up-to-the-tick data.
func (l *Ledger) DailyTotal(day domain.Day) int64 {
	var total int64
	for k, v := range l.entries {
		if k.Day == day {
			total += v
		}
	}
	return total
}

// Entries returns a copy of the ledger map (for status output).
func (l *Ledger) Entries() map[domain.LedgerKey]int64 {
	out := make(map[domain.LedgerKey]int64, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of ledger records.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Persist mirrors the full ledger to the store. Called at the end of
// every tick and unconditionally on shutdown; a failure is retried on
// the next tick and loses at most one interval of accounting.
func (l *Ledger) Persist() error {
	if err := l.store.Save(l.Entries()); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}
