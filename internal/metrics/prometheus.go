// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"favgrab/internal/database"
	"favgrab/internal/favicon"
)

// Prometheus metrics
var (
	LookupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favgrab_lookups_total",
			Help: "Total number of favicon lookups by result",
		},
		[]string{"result"},
	)

	ExportTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favgrab_exports_total",
			Help: "Total number of favicon exports by size and result",
		},
		[]string{"size", "result"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "favgrab_export_duration_seconds",
			Help:    "Time spent loading and re-encoding favicons",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	PendingExports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "favgrab_pending_exports",
			Help: "Number of exported files waiting to be downloaded",
		},
	)

	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favgrab_database_operations_total",
			Help: "Total database operations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "favgrab_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

type Collector struct {
	store database.Store
}

func NewCollector(store database.Store) *Collector {
	return &Collector{store: store}
}

func (c *Collector) RecordLookup(err error) {
	LookupTotal.WithLabelValues(resultLabel(err)).Inc()
}

// RecordExport counts one export. Sizes outside favicon.Sizes share the
// "invalid" label.
func (c *Collector) RecordExport(size int, err error, duration time.Duration) {
	result := resultLabel(err)
	ExportTotal.WithLabelValues(sizeLabel(size), result).Inc()
	ExportDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (c *Collector) RecordDatabaseOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// UpdateStoreMetrics refreshes the pending export gauge from the store.
func (c *Collector) UpdateStoreMetrics(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	stats, err := c.store.Stats(ctx)
	c.RecordDatabaseOperation("stats", err)
	if err != nil {
		return err
	}
	PendingExports.Set(float64(stats.Pending))
	return nil
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func sizeLabel(size int) string {
	if !favicon.IsSupportedSize(size) {
		return "invalid"
	}
	return strconv.Itoa(size)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return favicon.Code(err)
}
