// Package history keeps a local record of builds and validation runs.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/Azure/hb-kit/pkg/domain/errors"
)

const (
	recordsBucket = "records"

	// Dir is created under the source root.
	Dir      = ".hb"
	FileName = "history.db"
)

// DefaultPath returns <root>/.hb/history.db.
func DefaultPath(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Store implements record storage using BoltDB.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.CodeIoError, "history", fmt.Sprintf("failed to create directory %s", dir), err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		// Another hb holds the file lock.
		if strings.Contains(err.Error(), "timeout") ||
			strings.Contains(err.Error(), "resource temporarily unavailable") {
			return nil, errors.New(errors.CodeIoError, "history",
				fmt.Sprintf("history file '%s' is in use by another hb process", dbPath), err)
		}
		return nil, errors.New(errors.CodeIoError, "history", "failed to open bolt db", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.New(errors.CodeIoError, "history", "failed to create records bucket", err)
	}

	return &Store{db: db}, nil
}

// Close closes the BoltDB connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores rec, assigning an ID and start time when unset, and returns
// the stored record.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		if bucket.Get([]byte(rec.ID)) != nil {
			return errors.New(errors.CodeInvalidParameter, "history", fmt.Sprintf("record %s already exists", rec.ID), nil)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return errors.New(errors.CodeUnknown, "history", "failed to marshal record", err)
		}
		if err := bucket.Put([]byte(rec.ID), data); err != nil {
			return errors.New(errors.CodeIoError, "history", "failed to store record", err)
		}
		return nil
	})
	return rec, err
}

// Get retrieves a record by ID
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucket)).Get([]byte(id))
		if data == nil {
			return errors.New(errors.CodeNotFound, "history", fmt.Sprintf("record %s not found", id), nil)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns the records matching every filter, newest first. A limit
// of zero or less returns all of them.
func (s *Store) List(ctx context.Context, limit int, filters ...Filter) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			for _, filter := range filters {
				if !filter(rec) {
					return nil
				}
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Prune keeps the newest keep records and removes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	records, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(records) <= keep {
		return 0, nil
	}

	var removed int
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		for _, rec := range records[keep:] {
			if err := bucket.Delete([]byte(rec.ID)); err != nil {
				return errors.New(errors.CodeIoError, "history", fmt.Sprintf("failed to delete record %s", rec.ID), err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
}
