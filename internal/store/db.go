package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// DB wraps BadgerDB
type DB struct {
	db *badger.DB
}

// OpenBadger opens or creates a BadgerDB under dataDir. With inMemory set
// nothing is written to disk and dataDir is ignored.
func OpenBadger(dataDir string, inMemory, syncWrites bool) (*DB, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath := filepath.Join(dataDir, "badger")
		if err := os.MkdirAll(dbPath, 0755); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dbPath).WithSyncWrites(syncWrites)
	}
	opts.Logger = nil // Disable badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Badger returns the underlying BadgerDB instance
func (d *DB) Badger() *badger.DB {
	return d.db
}

// RunGC runs value log garbage collection once. Having nothing to rewrite
// is not an error.
func (d *DB) RunGC() error {
	err := d.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}
