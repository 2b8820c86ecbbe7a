package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	requestPrefix = []byte("req/")
	sequenceKey   = []byte("seq/req")
)

// BadgerJournal stores entries under req/<unix nanos><sequence>, so key
// order is time order.
type BadgerJournal struct {
	db  *DB
	seq *badger.Sequence
}

func NewBadgerJournal(db *DB) (*BadgerJournal, error) {
	seq, err := db.Badger().GetSequence(sequenceKey, 1000)
	if err != nil {
		return nil, fmt.Errorf("request sequence: %w", err)
	}
	return &BadgerJournal{db: db, seq: seq}, nil
}

// entryKey creates a key for an entry: req/<time 8 bytes>/<seq 8 bytes>
func entryKey(t time.Time, seq uint64) []byte {
	key := make([]byte, 0, len(requestPrefix)+16)
	key = append(key, requestPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(t.UnixNano()))
	return binary.BigEndian.AppendUint64(key, seq)
}

func (j *BadgerJournal) Append(e Entry) error {
	seq, err := j.seq.Next()
	if err != nil {
		return err
	}
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return j.db.Badger().Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.Time, seq), val)
	})
}

func (j *BadgerJournal) Recent(limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.Badger().View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = requestPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, requestPrefix...), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})

	return entries, err
}

// DeleteBefore deletes all entries recorded before cutoff
func (j *BadgerJournal) DeleteBefore(cutoff time.Time) (int, error) {
	limit := entryKey(cutoff, 0)
	var keys [][]byte

	err := j.db.Badger().View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = requestPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(limit) {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	wb := j.db.Badger().NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (j *BadgerJournal) Len() (int, error) {
	n := 0
	err := j.db.Badger().View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = requestPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC reclaims value log space after deletions.
func (j *BadgerJournal) RunGC() error {
	return j.db.RunGC()
}

func (j *BadgerJournal) Close() error {
	if err := j.seq.Release(); err != nil {
		j.db.Close()
		return err
	}
	return j.db.Close()
}
