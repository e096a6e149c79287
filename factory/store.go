package factory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/snapshot"
	"go.uber.org/zap"
)

// Store source names accepted by OpenStore besides file paths and s3:// URIs.
const (
	SourcePostgres     = "postgres"
	SourceDuckDBPrefix = "duckdb:"
)

// NewStoreWithConfig checks that the configured tables exist and returns a
// Postgres-backed store over pool.
func NewStoreWithConfig(config *formview.Config, pool *pgxpool.Pool) (formview.Store, error) {
	tables, err := tableCollector(pool)
	if err != nil {
		return nil, err
	}

	names := config.Database.TableNames
	var missing []string
	for _, want := range []string{names.Forms, names.Submissions, names.Views} {
		if !slices.Contains(tables, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required tables are missing in the database: %v", missing)
	}
	zap.S().Infow("using postgres store", "forms", names.Forms, "submissions", names.Submissions, "views", names.Views)
	return internal.NewPostgresStore(pool, names), nil
}

// DefaultSource picks the store a process should open when no source is
// given explicitly: the configured snapshot, then a DuckDB file, then the
// database.
func DefaultSource(config *formview.Config) string {
	if config.Snapshot.Source != "" {
		return config.Snapshot.Source
	}
	if config.DuckDB.DBPath != "" {
		return SourceDuckDBPrefix + config.DuckDB.DBPath
	}
	return SourcePostgres
}

// OpenStore resolves a source to a Store:
//
//	"" or "postgres"      the configured database
//	"duckdb:<path>"       a read-only DuckDB file
//	"s3://bucket/key"     a snapshot document in S3
//	anything else         a local snapshot file
//
// The returned func releases the store's connections.
func OpenStore(ctx context.Context, config *formview.Config, source string) (formview.Store, func(), error) {
	noop := func() {}
	switch {
	case source == "" || source == SourcePostgres:
		pool, err := NewPool(ctx, config.Database)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewStoreWithConfig(config, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	case strings.HasPrefix(source, SourceDuckDBPrefix):
		duckCfg := config.DuckDB
		duckCfg.DBPath = strings.TrimPrefix(source, SourceDuckDBPrefix)
		if duckCfg.DBPath == "" {
			return nil, noop, formview.NewConfigurationError(formview.ErrCodeUnsupportedSource, "duckdb source needs a file path")
		}
		client, err := internal.NewDuckDBClient(ctx, duckCfg)
		if err != nil {
			return nil, noop, err
		}
		return internal.NewDuckDBStore(client, config.Database.TableNames), func() { _ = client.Close() }, nil
	}

	snap, err := snapshot.Load(ctx, source, config.Snapshot)
	if err != nil {
		return nil, noop, err
	}
	return snap.Store(), noop, nil
}
