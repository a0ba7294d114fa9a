// internal/database/models.go
package database

import (
	"time"
)

// PendingExport is an exported PNG waiting to be downloaded, the server side
// of a browser's temporary object URL.
type PendingExport struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Size        int       `json:"size"`
	Target      string    `json:"target"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (p *PendingExport) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// Stats provides information about the pending export store.
type Stats struct {
	Pending      int       `json:"pending"`
	PendingBytes int64     `json:"pending_bytes"`
	DatabaseSize int64     `json:"database_size_bytes"`
	OldestEntry  time.Time `json:"oldest_entry"`
}
