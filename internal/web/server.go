// internal/web/server.go
package web

import (
	"context"
	"embed"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"favgrab/internal/config"
	"favgrab/internal/database"
	"favgrab/internal/exporter"
	"favgrab/internal/favicon"
	"favgrab/internal/metrics"
)

//go:embed static/index.html
var staticFiles embed.FS

type Server struct {
	config   *config.Config
	builder  *favicon.Builder
	exporter *exporter.Exporter
	store    database.Store
	metrics  *metrics.Collector
	router   *gin.Engine
	server   *http.Server

	mu        sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, builder *favicon.Builder, exp *exporter.Exporter, store database.Store, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:    cfg,
		builder:   builder,
		exporter:  exp,
		store:     store,
		metrics:   metricsCollector,
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	server.setupRoutes()
	return server
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	// Start metrics update routine
	go s.updateMetricsRoutine(ctx)

	// Start server in goroutine
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.closeClients()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	// Main page
	s.router.GET("/", s.serveIndex)
	s.router.GET("/favicon.ico", s.serveFaviconICO)
	s.router.GET("/favicon.svg", s.serveFavicon)

	// API routes
	api := s.router.Group("/api")
	{
		api.GET("/sizes", s.getSizes)
		api.POST("/lookup", s.lookup)
		api.GET("/export", s.exportDownload)

		api.POST("/exports", s.createExport)
		api.GET("/exports/:id", s.takeExport)
		api.DELETE("/exports/purge", s.purgeExports)

		api.GET("/stats", s.getStats)
		api.GET("/build", s.getBuildInfo)
		api.GET("/health", s.healthCheck)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Prometheus metrics
	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) serveIndex(c *gin.Context) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Page unavailable"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
	})
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.metrics.UpdateStoreMetrics(ctx); err != nil {
				logrus.WithError(err).Error("Failed to update store metrics")
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
