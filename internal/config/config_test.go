package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Port)
	assert.Equal(t, "https://www.google.com/s2/favicons", cfg.Favicon.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Export.Timeout)
	assert.Equal(t, int64(4<<20), cfg.Export.MaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.Export.TTL)
	assert.Equal(t, "./data/favgrab.db", cfg.Database.Path)
	assert.Equal(t, "/metrics", cfg.Prometheus.MetricsPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
  write_timeout: 2m
favicon:
  endpoint: "https://icons.example.net/render"
export:
  timeout: 5s
  max_bytes: 1024
  output_dir: /tmp/icons
database:
  path: /var/lib/favgrab/pending.db
prometheus:
  enabled: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "https://icons.example.net/render", cfg.Favicon.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Export.Timeout)
	assert.Equal(t, int64(1024), cfg.Export.MaxBytes)
	assert.Equal(t, "/tmp/icons", cfg.Export.OutputDir)
	assert.Equal(t, "/var/lib/favgrab/pending.db", cfg.Database.Path)
	assert.True(t, cfg.Prometheus.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [1, 2"},
		{name: "port without colon", body: "server:\n  port: \"8000\"\n"},
		{name: "endpoint with query", body: "favicon:\n  endpoint: \"https://x.example/?sz=1\"\n"},
		{name: "endpoint not http", body: "favicon:\n  endpoint: \"ftp://x.example/\"\n"},
		{name: "write timeout below export timeout", body: "server:\n  write_timeout: 10s\nexport:\n  timeout: 30s\n"},
		{name: "tiny ttl", body: "export:\n  ttl: 1ms\n"},
		{name: "metrics path", body: "prometheus:\n  metrics_path: metrics\n"},
		{name: "log format", body: "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, validate(Default()))
}
