package store

import (
	"sync"
	"time"
)

// MemoryJournal keeps the most recent entries in a fixed-size ring. Once
// full, each append overwrites the oldest entry.
type MemoryJournal struct {
	mu     sync.Mutex
	buf    []Entry
	start  int
	count  int
	closed bool
}

func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryJournal{buf: make([]Entry, capacity)}
}

func (j *MemoryJournal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	idx := (j.start + j.count) % len(j.buf)
	j.buf[idx] = e
	if j.count < len(j.buf) {
		j.count++
	} else {
		j.start = (j.start + 1) % len(j.buf)
	}
	return nil
}

func (j *MemoryJournal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > j.count {
		limit = j.count
	}
	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (j.start + j.count - 1 - i) % len(j.buf)
		out = append(out, j.buf[idx])
	}
	return out, nil
}

func (j *MemoryJournal) DeleteBefore(cutoff time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, ErrClosed
	}
	kept := make([]Entry, 0, j.count)
	for i := 0; i < j.count; i++ {
		e := j.buf[(j.start+i)%len(j.buf)]
		if !e.Time.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	deleted := j.count - len(kept)

	clear(j.buf)
	copy(j.buf, kept)
	j.start = 0
	j.count = len(kept)
	return deleted, nil
}

func (j *MemoryJournal) Len() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}
	return j.count, nil
}

func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
