package internal

import (
	"context"
	"fmt"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck runs a trivial query through the pool.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("postgres simple query failed: %w", err)
	}
	return nil
}

// HealthCheck pings the underlying DuckDB connection.
func (s *DuckDBStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}
