// internal/database/store.go
package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown or already released exports.
var ErrNotFound = errors.New("export not found")

// Store holds exported files until they are downloaded. Entries are one-shot:
// Take returns an entry and releases it in the same transaction.
type Store interface {
	// Put stores export, assigning ID and CreatedAt when they are unset.
	Put(ctx context.Context, export *PendingExport) error
	// Take returns the export and deletes it. Expired entries count as missing.
	Take(ctx context.Context, id string) (*PendingExport, error)
	// Purge deletes every entry that expired before now.
	Purge(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context) (*Stats, error)

	// Close the database connection
	Close() error
}
