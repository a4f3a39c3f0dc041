// Package journal keeps an append-only record of attempted membership
// transitions so an operator can reconstruct what happened on which node.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const keyPrefix = "op:"

// Entry is one attempted operation and its outcome.
type Entry struct {
	ID      string    `json:"id"`
	Action  string    `json:"action"`
	Target  string    `json:"target,omitempty"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Journal is a badger-backed operation log.
type Journal struct {
	db *badger.DB
}

// Open opens or creates the journal at dir.
func Open(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends an entry, assigning its ID and timestamp when unset, and
// returns the stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal journal entry: %w", err)
	}
	key := fmt.Sprintf("%s%020d:%s", keyPrefix, e.At.UnixNano(), e.ID)

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("write journal entry: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		// Seek past the last possible key in the prefix range.
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
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
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return entries, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
