package factory

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"go.uber.org/zap"
)

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Test hooks.
var (
	tableCollector    = collectTablesFromPool
	iamTokenGenerator = generateIAMToken
)

// NewManagerWithConfig creates a Manager backed by the Postgres tables named
// in config. This is the primary way for external projects to create one.
//
// Usage:
//
//	config := formview.DefaultConfig()
//	pool, err := factory.NewPool(ctx, config.Database)
//	if err != nil {
//	    // handle error
//	}
//	mgr, err := factory.NewManagerWithConfig(config, pool)
func NewManagerWithConfig(config *formview.Config, pool *pgxpool.Pool) (formview.Manager, error) {
	if config == nil {
		config = formview.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := NewStoreWithConfig(config, pool)
	if err != nil {
		return nil, err
	}
	return internal.NewManager(store, config), nil
}

func collectTablesFromPool(pool queryPool) ([]string, error) {
	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables 
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE';`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tables, nil
}

// NewPool opens and pings a connection pool. With UseIAM the password is
// replaced by a DSQL auth token for the configured region.
func NewPool(ctx context.Context, cfg formview.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func buildPoolConfig(ctx context.Context, cfg formview.DatabaseConfig) (*pgxpool.Config, error) {
	password := cfg.Password
	sslMode := cfg.SSLMode
	if cfg.UseIAM {
		endpoint := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		token, err := iamTokenGenerator(ctx, endpoint, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to generate IAM auth token: %w", err)
		}
		password = token
		if sslMode == "" || sslMode == "disable" {
			sslMode = "require"
		}
		zap.S().Infow("generated IAM auth token for Postgres connection (dsql)", "endpoint", endpoint)
	}

	connURL := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout
	return poolConfig, nil
}

func generateIAMToken(ctx context.Context, endpoint, region string) (string, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, region, awsCfg.Credentials)
}
