// Package config provides unified configuration loading for the integration engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the integration engine.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Sources       SourcesConfig       `yaml:"sources"`
	Matching      MatchingConfig      `yaml:"matching"`
	Validation    ValidationConfig    `yaml:"validation"`
	Cache         CacheConfig         `yaml:"cache"`
	Quality       QualityConfig       `yaml:"quality"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DatabaseConfig holds canonical-store connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SourcesConfig holds upstream feed settings.
type SourcesConfig struct {
	Crawler    FeedConfig `yaml:"crawler"`
	Government FeedConfig `yaml:"government"`
}

// FeedConfig describes one upstream feed: either a staging database or a
// JSON snapshot directory produced by the crawler.
type FeedConfig struct {
	Driver       string `yaml:"driver"` // sql or snapshot
	DSN          string `yaml:"dsn"`
	SnapshotPath string `yaml:"snapshot_path"`
	SourceType   string `yaml:"source_type"` // tag written into source mappings
}

// MatchingConfig holds match resolver thresholds.
type MatchingConfig struct {
	CoordinateTolerance float64 `yaml:"coordinate_tolerance"`
	NameThreshold       float64 `yaml:"name_threshold"`
}

// ValidationConfig holds validator sentinels and ranges.
type ValidationConfig struct {
	UnknownNameSentinel string `yaml:"unknown_name_sentinel"`
	MinCompletionYear   int    `yaml:"min_completion_year"`
	MaxHouseholds       int    `yaml:"max_households"`
}

// CacheConfig holds source-mapping cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// QualityConfig holds quality audit and alerting settings. A run whose
// overall score falls below AlertThreshold triggers a quality alert.
type QualityConfig struct {
	AlertThreshold float64 `yaml:"alert_threshold"`
	AlertChannel   string  `yaml:"alert_channel"`
	PublishAlerts  bool    `yaml:"publish_alerts"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/integration-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Sources: SourcesConfig{
			Crawler: FeedConfig{
				Driver:     "snapshot",
				SourceType: "naver",
			},
			Government: FeedConfig{
				Driver:     "snapshot",
				SourceType: "molit",
			},
		},
		Matching: MatchingConfig{
			CoordinateTolerance: 0.0001,
			NameThreshold:       0.8,
		},
		Validation: ValidationConfig{
			UnknownNameSentinel: "정보없음",
			MinCompletionYear:   1950,
			MaxHouseholds:       50000,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Quality: QualityConfig{
			AlertThreshold: 70,
			AlertChannel:   "quality.alerts",
			PublishAlerts:  false,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	for _, feed := range []FeedConfig{c.Sources.Crawler, c.Sources.Government} {
		if feed.Driver != "sql" && feed.Driver != "snapshot" {
			return fmt.Errorf("invalid source driver: %s", feed.Driver)
		}
	}

	if c.Matching.CoordinateTolerance <= 0 {
		return fmt.Errorf("coordinate_tolerance must be positive")
	}

	if c.Matching.NameThreshold < 0 || c.Matching.NameThreshold > 1 {
		return fmt.Errorf("name_threshold must be in [0,1]")
	}

	if c.Quality.AlertThreshold < 0 || c.Quality.AlertThreshold > 100 {
		return fmt.Errorf("alert_threshold must be in [0,100]")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("CRAWLER_DSN"); v != "" {
		cfg.Sources.Crawler.Driver = "sql"
		cfg.Sources.Crawler.DSN = v
	}

	if v := os.Getenv("CRAWLER_SNAPSHOT"); v != "" {
		cfg.Sources.Crawler.Driver = "snapshot"
		cfg.Sources.Crawler.SnapshotPath = v
	}

	if v := os.Getenv("GOVERNMENT_DSN"); v != "" {
		cfg.Sources.Government.Driver = "sql"
		cfg.Sources.Government.DSN = v
	}

	if v := os.Getenv("GOVERNMENT_SNAPSHOT"); v != "" {
		cfg.Sources.Government.Driver = "snapshot"
		cfg.Sources.Government.SnapshotPath = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("QUALITY_ALERT_CHANNEL"); v != "" {
		cfg.Quality.AlertChannel = v
		cfg.Quality.PublishAlerts = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
