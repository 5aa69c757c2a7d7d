// Package history keeps a record of finished copies in a bbolt file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"ingest/internal/domain"
)

var bucketCopies = []byte("copies")

// ErrReadOnly is returned by Record on a store opened with OpenReadOnly.
var ErrReadOnly = errors.New("history store is read-only")

const lockTimeout = 2 * time.Second

// Store implements app.HistoryRecorder. An empty path keeps records in memory.
//
// The bbolt file is opened for each operation and closed right after, so a
// running watcher never holds the file lock between copies.
type Store struct {
	path     string
	readOnly bool

	mu     sync.Mutex
	memory []domain.CopyRecord
}

func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &Store{path: path}
	err := s.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCopies)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenReadOnly returns a store that only reads path. A missing file reads as
// an empty history.
func OpenReadOnly(path string) (*Store, error) {
	if path == "" {
		return &Store{readOnly: true}, nil
	}
	return &Store{path: path, readOnly: true}, nil
}

// Close is kept for callers that defer it; no file stays open between calls.
func (s *Store) Close() error {
	return nil
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("failed to open history db: %w", err)
	}
	if err := db.Update(fn); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: lockTimeout, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to open history db: %w", err)
	}
	defer db.Close()
	return db.View(fn)
}

func (s *Store) Record(rec domain.CopyRecord) error {
	if rec.ID == "" {
		return errors.New("history record requires an id")
	}
	if s.readOnly {
		return ErrReadOnly
	}
	if s.path == "" {
		s.mu.Lock()
		s.memory = append(s.memory, rec)
		s.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketCopies)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) ([]domain.CopyRecord, error) {
	var records []domain.CopyRecord

	if s.path == "" {
		s.mu.Lock()
		records = append(records, s.memory...)
		s.mu.Unlock()
	} else {
		err := s.view(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketCopies)
			if b == nil {
				return nil
			}
			return b.ForEach(func(k, v []byte) error {
				var rec domain.CopyRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("history record %s: %w", k, err)
				}
				records = append(records, rec)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// LastFor returns the newest successful record for src.
func (s *Store) LastFor(src string) (domain.CopyRecord, bool, error) {
	records, err := s.Recent(0)
	if err != nil {
		return domain.CopyRecord{}, false, err
	}
	for _, rec := range records {
		if rec.Src == src && rec.Succeeded() {
			return rec, true, nil
		}
	}
	return domain.CopyRecord{}, false, nil
}
