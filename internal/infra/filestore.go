package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"playtimed/internal/domain"
)

// FileLedgerStore implements domain.LedgerStore as a plain text file,
// one "command:pid:day <seconds>" record per line. The layout must stay
// stable between releases: crash recovery depends on any version of the
// daemon reading any other version's file.
type FileLedgerStore struct {
	path string
}

// NewFileLedgerStore creates a store at path.
func NewFileLedgerStore(path string) *FileLedgerStore {
	return &FileLedgerStore{path: path}
}

// Path returns the backing file location.
func (s *FileLedgerStore) Path() string { return s.path }

// Load reads all records. A missing file is a first run and yields an
// empty map; any unparseable content fails with domain.ErrCorruptStore
// so history is never silently discarded.
func (s *FileLedgerStore) Load() (map[domain.LedgerKey]int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[domain.LedgerKey]int64), nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	entries := make(map[domain.LedgerKey]int64)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// The command may contain spaces, so the seconds field is split
		// from the right, like the pid and day inside the key.
		si := strings.LastIndexByte(line, ' ')
		if si < 0 {
			return nil, fmt.Errorf("%w: %s line %d: missing value", domain.ErrCorruptStore, s.path, i+1)
		}
		keyStr, secStr := line[:si], line[si+1:]
		key, err := domain.ParseLedgerKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrCorruptStore, s.path, i+1, err)
		}
		seconds, err := strconv.ParseInt(secStr, 10, 64)
		if err != nil || seconds < 0 {
			return nil, fmt.Errorf("%w: %s line %d: bad seconds %q", domain.ErrCorruptStore, s.path, i+1, secStr)
		}
		entries[key] = seconds
	}
	return entries, nil
}

// Save writes the full ledger atomically (write temp + rename), so a
// reader never observes a partial file. Records are sorted for a
// deterministic representation.
func (s *FileLedgerStore) Save(entries map[domain.LedgerKey]int64) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	lines := make([]string, 0, len(entries))
	for k, v := range entries {
		lines = append(lines, fmt.Sprintf("%s %d\n", k, v))
	}
	sort.Strings(lines)

	// Temp file name is unique per process to avoid clobbering a
	// concurrent writer's temp file.
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, []byte(strings.Join(lines, "")), 0600); err != nil {
		return fmt.Errorf("failed to write ledger temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileLedgerStore) Close() error { return nil }

// Ensure FileLedgerStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*FileLedgerStore)(nil)
