package store

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("journal closed")

// Entry describes one answered request. Only request metadata is kept;
// no message payloads are ever stored.
type Entry struct {
	Time          time.Time     `json:"time"`
	RemoteAddr    string        `json:"remote_addr"`
	APIKey        int16         `json:"api_key"`
	APIVersion    int16         `json:"api_version"`
	CorrelationID int32         `json:"correlation_id"`
	ClientID      string        `json:"client_id,omitempty"`
	ErrorCode     int16         `json:"error_code"`
	Duration      time.Duration `json:"duration_ns"`
}

// Journal is an append-only log of answered requests.
type Journal interface {
	Append(e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]Entry, error)
	// DeleteBefore removes entries older than cutoff and reports how many
	// were removed.
	DeleteBefore(cutoff time.Time) (int, error)
	Len() (int, error)
	Close() error
}
