package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"playtimed/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ sqlcipher.SQLiteDriver

// SQLLedgerStore implements domain.LedgerStore on a SQLCipher encrypted
// SQLite database. A plain text ledger invites the monitored user to
// edit their own budget; the encrypted store closes that hole while
// keeping the same load/save contract.
type SQLLedgerStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLLedgerStore opens (or creates) an encrypted ledger database at
// dbPath, keyed via PRAGMA key. An existing database that cannot be
// opened or decrypted fails with domain.ErrCorruptStore.
func NewSQLLedgerStore(dbPath string, key []byte) (*SQLLedgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	_, statErr := os.Stat(dbPath)
	existed := statErr == nil

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
		dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		if existed {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, dbPath, err)
		}
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	store := &SQLLedgerStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		if existed {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, dbPath, err)
		}
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return store, nil
}

func (s *SQLLedgerStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_ledger (
		command TEXT NOT NULL,
		pid INTEGER NOT NULL,
		day TEXT NOT NULL,
		seconds INTEGER NOT NULL,
		PRIMARY KEY (command, pid, day)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLLedgerStore) Path() string { return s.dbPath }

// Load reads all ledger records.
func (s *SQLLedgerStore) Load() (map[domain.LedgerKey]int64, error) {
	rows, err := s.db.Query(`SELECT command, pid, day, seconds FROM time_ledger`)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, s.dbPath, err)
	}
	defer rows.Close()

	entries := make(map[domain.LedgerKey]int64)
	for rows.Next() {
		var (
			command string
			pid     int32
			day     string
			seconds int64
		)
		if err := rows.Scan(&command, &pid, &day, &seconds); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, s.dbPath, err)
		}
		entries[domain.LedgerKey{Command: command, PID: pid, Day: domain.Day(day)}] = seconds
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, s.dbPath, err)
	}
	return entries, nil
}

// Save replaces the full ledger in one transaction; readers see either
// the old or the new state, never a partial write.
func (s *SQLLedgerStore) Save(entries map[domain.LedgerKey]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM time_ledger`); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	for k, v := range entries {
		_, err := tx.Exec(`INSERT INTO time_ledger (command, pid, day, seconds) VALUES (?, ?, ?, ?)`,
			k.Command, k.PID, string(k.Day), v)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to write ledger record %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLLedgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLLedgerStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*SQLLedgerStore)(nil)
