// internal/web/handlers.go
package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"favgrab/internal/database"
	"favgrab/internal/exporter"
	"favgrab/internal/favicon"
)

type LookupRequest struct {
	URL string `json:"url"`
}

type ExportRequest struct {
	URL  string `json:"url" form:"url"`
	Size int    `json:"size" form:"size" binding:"required"`
}

type ExportResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GET /api/sizes
func (s *Server) getSizes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": favicon.Sizes})
}

// POST /api/lookup - derive the link set for one input
func (s *Server) lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	links, err := s.builder.Derive(req.URL)
	s.metrics.RecordLookup(err)
	if err != nil {
		logrus.WithError(err).WithField("input", req.URL).Debug("Lookup rejected")
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": links})
}

// GET /api/export?url=...&size=N - export and download in one request
func (s *Server) exportDownload(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	_, link, err := s.linkFor(req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	start := time.Now()
	_, err = s.exporter.Export(c.Request.Context(), req.Size, link, attachmentSink{c: c})
	s.metrics.RecordExport(req.Size, err, time.Since(start))
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"size": req.Size,
			"link": link,
		}).Warn("Export failed")
		s.abortWithError(c, err)
	}
}

// POST /api/exports - export into the pending store, download later
func (s *Server) createExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	links, link, err := s.linkFor(req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	start := time.Now()
	sink := s.pendingSink(req.Size, links.Target)
	res, err := s.exporter.Export(c.Request.Context(), req.Size, link, sink)
	s.metrics.RecordExport(req.Size, err, time.Since(start))
	if err != nil {
		logrus.WithError(err).WithField("size", req.Size).Warn("Export failed")
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": exportResponse(res, sink.expiresAt)})
}

// GET /api/exports/:id - one-shot download of a pending export
func (s *Server) takeExport(c *gin.Context) {
	export, err := s.store.Take(c.Request.Context(), c.Param("id"))
	s.metrics.RecordDatabaseOperation("take", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
			return
		}
		logrus.WithError(err).Error("Failed to load export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// DELETE /api/exports/purge - drop expired pending exports now
func (s *Server) purgeExports(c *gin.Context) {
	deleted, err := s.store.Purge(c.Request.Context(), time.Now())
	s.metrics.RecordDatabaseOperation("purge", err)
	if err != nil {
		logrus.WithError(err).Error("Failed to purge expired exports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge expired exports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Expired exports purged successfully",
		"deleted":   deleted,
		"timestamp": time.Now(),
	})
}

// GET /api/stats
func (s *Server) getStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	s.metrics.RecordDatabaseOperation("stats", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"store":             stats,
			"websocket_clients": s.clientCount(),
		},
	})
}

// linkFor derives the image URL to export. Only inputs the normalizer
// accepts can be exported, so arbitrary URLs are never fetched.
func (s *Server) linkFor(req ExportRequest) (favicon.LinkSet, string, error) {
	if !favicon.IsSupportedSize(req.Size) {
		return favicon.LinkSet{}, "", fmt.Errorf("%w: %d", errUnsupportedSize, req.Size)
	}

	links, err := s.builder.Derive(req.URL)
	if err != nil {
		return favicon.LinkSet{}, "", err
	}
	link, _ := links.Get(req.Size)
	return links, link, nil
}

func (s *Server) pendingSink(size int, target string) *pendingSink {
	return &pendingSink{
		store:  s.store,
		ttl:    s.config.Export.TTL,
		size:   size,
		target: target,
		onSave: func(err error) { s.metrics.RecordDatabaseOperation("put", err) },
	}
}

func exportResponse(res exporter.Result, expiresAt time.Time) ExportResponse {
	return ExportResponse{
		ID:          strings.TrimPrefix(res.Location, downloadPath("")),
		FileName:    res.FileName,
		DownloadURL: res.Location,
		Width:       res.Width,
		Height:      res.Height,
		ExpiresAt:   expiresAt,
	}
}

var (
	errUnsupportedSize = errors.New("unsupported size")
	errBadRequest      = errors.New("malformed request")
)

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := favicon.Code(err)
	message := favicon.Message(err)
	switch {
	case errors.Is(err, favicon.ErrMissingInput), errors.Is(err, favicon.ErrInvalidURL):
		status = http.StatusBadRequest
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		code = "bad_request"
		message = "요청 형식이 올바르지 않습니다"
	case errors.Is(err, errUnsupportedSize):
		status = http.StatusBadRequest
		code = "unsupported_size"
		message = "지원하지 않는 크기입니다"
	case errors.Is(err, favicon.ErrExportFailure):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

func ignoreNotFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}
