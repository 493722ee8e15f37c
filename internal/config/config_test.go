package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "naver", cfg.Sources.Crawler.SourceType)
	assert.Equal(t, "molit", cfg.Sources.Government.SourceType)
	assert.Equal(t, 0.0001, cfg.Matching.CoordinateTolerance)
	assert.Equal(t, 0.8, cfg.Matching.NameThreshold)
	assert.Equal(t, "정보없음", cfg.Validation.UnknownNameSentinel)
	assert.Equal(t, 70.0, cfg.Quality.AlertThreshold)
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: postgres
  postgres:
    dsn: postgres://localhost/danji
matching:
  name_threshold: 0.9
quality:
  alert_threshold: 85
sources:
  crawler:
    driver: snapshot
    snapshot_path: /data/naver
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/danji", cfg.DatabaseDSN())
	assert.Equal(t, 0.9, cfg.Matching.NameThreshold)
	assert.Equal(t, "/data/naver", cfg.Sources.Crawler.SnapshotPath)
	assert.Equal(t, 85.0, cfg.Quality.AlertThreshold)
	// Untouched sections keep defaults.
	assert.Equal(t, "molit", cfg.Sources.Government.SourceType)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:/tmp/test-override.db")
	t.Setenv("CRAWLER_SNAPSHOT", "/data/crawler")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test-override.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "snapshot", cfg.Sources.Crawler.Driver)
	assert.Equal(t, "/data/crawler", cfg.Sources.Crawler.SnapshotPath)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestValidate_Rejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Matching.CoordinateTolerance = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Matching.NameThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sources.Crawler.Driver = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Quality.AlertThreshold = 150
	assert.Error(t, cfg.Validate())
}
