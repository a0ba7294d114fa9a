// internal/web/sinks.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"favgrab/internal/database"
)

// attachmentSink streams the exported file straight back as a download.
type attachmentSink struct {
	c *gin.Context
}

func (a attachmentSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	a.c.Header("Cache-Control", "no-store")
	a.c.Data(http.StatusOK, "image/png", data)
	return name, nil
}

// pendingSink parks the exported file in the store until it is downloaded
// once from /api/exports/:id. After a successful Save, expiresAt holds the
// stored expiry.
type pendingSink struct {
	store  database.Store
	ttl    time.Duration
	size   int
	target string
	onSave func(error)

	expiresAt time.Time
}

func (p *pendingSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	now := time.Now()
	export := &database.PendingExport{
		FileName:    name,
		Size:        p.size,
		Target:      p.target,
		ContentType: "image/png",
		Data:        data,
		CreatedAt:   now,
		ExpiresAt:   now.Add(p.ttl),
	}
	err := p.store.Put(ctx, export)
	if p.onSave != nil {
		p.onSave(err)
	}
	if err != nil {
		return "", err
	}
	p.expiresAt = export.ExpiresAt
	return downloadPath(export.ID), nil
}

func downloadPath(id string) string {
	return "/api/exports/" + id
}
