package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB wraps SQLite database
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates monowire.db under dataDir. With inMemory
// set the database lives only as long as the process.
func OpenSQLite(dataDir string, inMemory bool) (*SQLiteDB, error) {
	dsn := ":memory:"
	if !inMemory {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, err
		}
		dbPath := filepath.Join(dataDir, "monowire.db")
		dsn = dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings. A single connection also keeps an
	// in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteDB{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time INTEGER NOT NULL,
		remote_addr TEXT NOT NULL,
		api_key INTEGER NOT NULL,
		api_version INTEGER NOT NULL,
		correlation_id INTEGER NOT NULL,
		client_id TEXT,
		error_code INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_time ON requests(time);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// ============================================================================
// SQLiteJournal
// ============================================================================

type SQLiteJournal struct {
	db *SQLiteDB
}

func NewSQLiteJournal(db *SQLiteDB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

func (s *SQLiteJournal) Append(e Entry) error {
	_, err := s.db.DB().Exec(
		`INSERT INTO requests (time, remote_addr, api_key, api_version, correlation_id, client_id, error_code, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.RemoteAddr, e.APIKey, e.APIVersion, e.CorrelationID, e.ClientID, e.ErrorCode, int64(e.Duration),
	)
	return err
}

func (s *SQLiteJournal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.DB().Query(
		`SELECT time, remote_addr, api_key, api_version, correlation_id, client_id, error_code, duration_ns
		 FROM requests ORDER BY time DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, dur int64
		var clientID sql.NullString
		if err := rows.Scan(&ts, &e.RemoteAddr, &e.APIKey, &e.APIVersion, &e.CorrelationID, &clientID, &e.ErrorCode, &dur); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts)
		e.ClientID = clientID.String
		e.Duration = time.Duration(dur)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteJournal) DeleteBefore(cutoff time.Time) (int, error) {
	result, err := s.db.DB().Exec("DELETE FROM requests WHERE time < ?", cutoff.UnixNano())
	if err != nil {
		return 0, err
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (s *SQLiteJournal) Len() (int, error) {
	var n int
	err := s.db.DB().QueryRow("SELECT COUNT(*) FROM requests").Scan(&n)
	return n, err
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
