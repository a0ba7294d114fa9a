// cmd/favgrab/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"favgrab/internal/config"
	"favgrab/internal/database"
	"favgrab/internal/exporter"
	"favgrab/internal/favicon"
	"favgrab/internal/metrics"
	"favgrab/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("favgrab %s\nCommit: %s\nBuilt: %s\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"endpoint":    cfg.Favicon.Endpoint,
	}).Info("Starting favgrab")

	// Initialize database
	store, err := database.NewBoltStore(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize metrics
	metricsCollector := metrics.NewCollector(store)

	builder, err := favicon.NewBuilder(cfg.Favicon.Endpoint)
	if err != nil {
		logrus.Fatalf("Failed to initialize link builder: %v", err)
	}

	loader := exporter.NewLoader(
		&http.Client{Timeout: cfg.Export.Timeout},
		cfg.Export.UserAgent,
		cfg.Export.MaxBytes,
	)
	exp := exporter.New(loader, cfg.Export.Timeout)

	// Initialize web server
	webServer := web.NewServer(cfg, builder, exp, store, metricsCollector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database.SchedulePeriodicPurge(ctx, store, cfg.Database.CleanupInterval, func(ctx context.Context) {
		if err := metricsCollector.UpdateStoreMetrics(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("Failed to refresh store metrics")
		}
	})

	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	// Graceful shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server did not shut down cleanly")
	}

	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
