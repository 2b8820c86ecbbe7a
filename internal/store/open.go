package store

import (
	"fmt"

	"github.com/rizkyandriawan/monowire/internal/config"
)

// Open creates the journal selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Journal, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryJournal(cfg.MemoryCapacity), nil

	case config.BackendBadger, config.BackendBadgerMemory:
		db, err := OpenBadger(cfg.DataDir, cfg.Backend == config.BackendBadgerMemory, cfg.SyncWrites)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		j, err := NewBadgerJournal(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return j, nil

	case config.BackendSQLite, config.BackendSQLiteMemory:
		db, err := OpenSQLite(cfg.DataDir, cfg.Backend == config.BackendSQLiteMemory)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return NewSQLiteJournal(db), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
