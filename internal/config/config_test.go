package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Response.OmitNull)
}

func TestLoad_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  addr: ":9090"
storage:
  backend: sqlite
  dsn: /tmp/records.db
log:
  level: debug
  format: console
response:
  omit_null: true
`), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/records.db", cfg.Storage.Options().DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Response.OmitNull)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CELERIX_HTTP_ADDR", ":7777")
	t.Setenv("CELERIX_STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/records")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/records", cfg.Storage.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("sql backend without dsn", func(t *testing.T) {
		t.Setenv("CELERIX_STORAGE_BACKEND", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "DSN")
	})
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CELERIX_STORAGE_BACKEND", "mongo")
		_, err := Load("")
		assert.ErrorContains(t, err, "Backend")
	})
	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("CELERIX_LOG_LEVEL", "loud")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
