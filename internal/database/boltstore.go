// internal/database/boltstore.go - BoltDB store for pending exports
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var (
	ExportsBucket = []byte("exports")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path, now: time.Now}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(ExportsBucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", ExportsBucket, err)
		}
		return nil
	})
}

func (s *BoltStore) Put(ctx context.Context, export *PendingExport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if export.ID == "" {
		export.ID = uuid.New().String()
	}
	if export.CreatedAt.IsZero() {
		export.CreatedAt = s.now()
	}

	data, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(ExportsBucket).Put([]byte(export.ID), data)
	})
}

func (s *BoltStore) Take(ctx context.Context, id string) (*PendingExport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var export PendingExport
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ExportsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &export); err != nil {
			return fmt.Errorf("failed to unmarshal export %s: %w", id, err)
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}

	if export.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &export, nil
}

func (s *BoltStore) Purge(ctx context.Context, now time.Time) (int, error) {
	deletedCount := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ExportsBucket)

		var keysToDelete [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var export PendingExport
			if err := json.Unmarshal(v, &export); err != nil {
				// Malformed entries cannot be downloaded either.
				keysToDelete = append(keysToDelete, copyBytes(k))
				continue
			}
			if export.Expired(now) {
				keysToDelete = append(keysToDelete, copyBytes(k))
			}
		}

		for _, key := range keysToDelete {
			if err := b.Delete(key); err != nil {
				return fmt.Errorf("failed to delete export %s: %w", key, err)
			}
			deletedCount++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired exports: %w", err)
	}

	if deletedCount > 0 {
		logrus.WithField("deleted_count", deletedCount).Debug("Purged expired exports")
	}
	return deletedCount, nil
}

func (s *BoltStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(ExportsBucket).ForEach(func(k, v []byte) error {
			var export PendingExport
			if err := json.Unmarshal(v, &export); err != nil {
				return nil // Skip malformed entries
			}
			stats.Pending++
			stats.PendingBytes += int64(len(export.Data))
			if stats.OldestEntry.IsZero() || export.CreatedAt.Before(stats.OldestEntry) {
				stats.OldestEntry = export.CreatedAt
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// copyBytes creates a copy of a byte slice
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
