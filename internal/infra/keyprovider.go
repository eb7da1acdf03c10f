package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// The encrypted ledger store is keyed by a random 256-bit key kept in a
// 0600 file next to the database. Losing the key makes the database
// undecryptable, which startup treats the same as corruption, so the
// file is written once on first use and never rewritten.

const (
	keyFileName = ".ledger.key"
	keySize     = 32
)

// GenerateKey returns a fresh random store key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate store key: %w", err)
	}
	return key, nil
}

// EnsureStoreKey returns the store key kept in dataDir, generating and
// persisting one on first use.
func EnsureStoreKey(dataDir string) ([]byte, error) {
	path := filepath.Join(dataDir, keyFileName)

	encoded, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := base64.StdEncoding.DecodeString(string(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to decode store key %s: %w", path, err)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("store key %s has %d bytes, want %d", path, len(key), keySize)
		}
		return key, nil
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read store key: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write store key: %w", err)
	}
	return key, nil
}
