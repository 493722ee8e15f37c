package commands

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/danjilab/integration-engine/internal/cache"
	"github.com/danjilab/integration-engine/internal/config"
	"github.com/danjilab/integration-engine/internal/monitoring"
	"github.com/danjilab/integration-engine/internal/observability"
	"github.com/danjilab/integration-engine/internal/source"
)

// loadConfig reads the config file and applies the verbose flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
		cfg.Observability.LogFormat = "console"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "integration-engine",
	})
}

// openDatabase opens the canonical store for the configured driver.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_foreign_keys=on",
			cfg.Database.SQLite.Path, cfg.Database.SQLite.JournalMode)
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.SQLite.MaxOpenConns)
		return db, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Database.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.Postgres.ConnMaxLifetime)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// openStagingDatabase opens a feed's staging database. Staging tables come
// from the crawlers, which write sqlite locally and postgres in production.
func openStagingDatabase(dsn string) (*sql.DB, error) {
	driver := "postgres"
	if dsn == "" {
		return nil, fmt.Errorf("staging dsn is empty")
	}
	if len(dsn) < 8 || dsn[:8] != "postgres" {
		driver = "sqlite3"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open staging database: %w", err)
	}
	return db, nil
}

// buildListingFeed constructs the crawler feed from its config.
func buildListingFeed(cfg config.FeedConfig) (source.ListingFeed, *sql.DB, error) {
	switch cfg.Driver {
	case "snapshot":
		if cfg.SnapshotPath == "" {
			return nil, nil, nil
		}
		return source.NewSnapshotListingFeed(cfg.SnapshotPath, cfg.SourceType), nil, nil
	case "sql":
		db, err := openStagingDatabase(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return source.NewSQLListingFeed(db, cfg.SourceType), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported feed driver: %s", cfg.Driver)
	}
}

// buildTransactionFeed constructs the government feed from its config.
func buildTransactionFeed(cfg config.FeedConfig) (source.TransactionFeed, *sql.DB, error) {
	switch cfg.Driver {
	case "snapshot":
		if cfg.SnapshotPath == "" {
			return nil, nil, nil
		}
		return source.NewSnapshotTransactionFeed(cfg.SnapshotPath, cfg.SourceType), nil, nil
	case "sql":
		db, err := openStagingDatabase(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return source.NewSQLTransactionFeed(db, cfg.SourceType), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported feed driver: %s", cfg.Driver)
	}
}

// redisURL assembles a URL from the addr-style redis config.
func redisURL(cfg config.RedisConfig) string {
	if cfg.Password != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", cfg.Password, cfg.Addr, cfg.DB)
	}
	return fmt.Sprintf("redis://%s/%d", cfg.Addr, cfg.DB)
}

// newCache builds the configured mapping cache.
func newCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedis(ctx, redisURL(cfg.Cache.Redis))
	}
	return cache.NewMemory(), nil
}

// newMonitor builds the run monitor, wiring Redis alerts only when enabled.
func newMonitor(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*monitoring.Monitor, error) {
	url := ""
	if cfg.Quality.PublishAlerts {
		url = redisURL(cfg.Cache.Redis)
	}
	return monitoring.NewMonitor(ctx, logger, url, cfg.Quality.AlertChannel)
}
