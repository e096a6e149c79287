package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// DuckDBClient wraps a database/sql DB opened with the DuckDB driver.
type DuckDBClient struct {
	DB  *sql.DB
	cfg formview.DuckDBConfig
}

// ValidateDuckDBConfig performs basic sanity checks on user-provided DuckDB configuration.
func ValidateDuckDBConfig(cfg formview.DuckDBConfig) error {
	if cfg.MemoryLimitMB < 0 {
		return fmt.Errorf("invalid memoryLimitMB: must be >= 0")
	}
	if cfg.MaxParallelism < 0 {
		return fmt.Errorf("invalid maxParallelism: must be >= 0")
	}
	return nil
}

// NewDuckDBClient opens the configured database file read-only, or an
// in-memory database when no path is set.
func NewDuckDBClient(ctx context.Context, cfg formview.DuckDBConfig) (*DuckDBClient, error) {
	if err := ValidateDuckDBConfig(cfg); err != nil {
		return nil, err
	}

	dsn := ":memory:"
	if cfg.DBPath != "" && cfg.DBPath != ":memory:" {
		dsn = cfg.DBPath + "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if cfg.MemoryLimitMB > 0 {
		if _, err := db.ExecContext(pingCtx, fmt.Sprintf("PRAGMA memory_limit='%dMB';", cfg.MemoryLimitMB)); err != nil {
			zap.S().Warnw("duckdb: set memory_limit failed", "err", err, "memoryLimitMB", cfg.MemoryLimitMB)
		}
	}
	if cfg.MaxParallelism > 0 {
		if _, err := db.ExecContext(pingCtx, fmt.Sprintf("PRAGMA threads=%d;", cfg.MaxParallelism)); err != nil {
			zap.S().Warnw("duckdb: set threads failed", "err", err, "maxParallelism", cfg.MaxParallelism)
		}
	}

	return &DuckDBClient{DB: db, cfg: cfg}, nil
}

// Close closes the underlying DuckDB DB.
func (c *DuckDBClient) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// HealthCheck runs a trivial query against the connection.
func (c *DuckDBClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return fmt.Errorf("duckdb client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v int
	if err := c.DB.QueryRowContext(ctx, "SELECT 1;").Scan(&v); err != nil {
		return fmt.Errorf("duckdb health query failed: %w", err)
	}
	if v != 1 {
		return fmt.Errorf("unexpected duckdb health result: %d", v)
	}
	return nil
}

func (c *DuckDBClient) queryTimeout() time.Duration {
	if c.cfg.QueryTimeout > 0 {
		return c.cfg.QueryTimeout
	}
	return 30 * time.Second
}
