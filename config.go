package formview

import (
	"time"
)

// Config holds every setting the server, CLI and engine consume.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	View     ViewSettings   `json:"view"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
	Snapshot SnapshotConfig `json:"snapshot"`
	DuckDB   DuckDBConfig   `json:"duckdb"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
	// UseIAM replaces Password with a DSQL auth token generated from the
	// ambient AWS credentials.
	UseIAM     bool       `json:"useIAM"`
	Region     string     `json:"region"`
	TableNames TableNames `json:"tableNames"`
}

// TableNames names the relational tables holding forms, submissions and views.
type TableNames struct {
	Forms       string `json:"forms"`
	Submissions string `json:"submissions"`
	Views       string `json:"views"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port            int           `json:"port"`
	AllowedOrigins  []string      `json:"allowedOrigins"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	RequestTimeout  time.Duration `json:"requestTimeout"`
}

// ViewSettings bounds view materialization.
type ViewSettings struct {
	DefaultMaxRows int `json:"defaultMaxRows"`
	MaxRowsCeiling int `json:"maxRowsCeiling"`
}

// CacheConfig controls the form schema cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled"`
	TTL     time.Duration `json:"ttl"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SnapshotConfig configures where project snapshots are read from.
type SnapshotConfig struct {
	// Source, when set, is a snapshot file path or s3://bucket/key that the
	// server serves instead of the database.
	Source      string `json:"source"`
	S3Region    string `json:"s3Region"`
	S3Endpoint  string `json:"s3Endpoint"`
	S3AccessKey string `json:"s3AccessKey"`
	S3SecretKey string `json:"s3SecretKey"`
}

// DuckDBConfig configures the read-only DuckDB store.
type DuckDBConfig struct {
	DBPath         string        `json:"dbPath"`
	QueryTimeout   time.Duration `json:"queryTimeout"`
	MemoryLimitMB  int           `json:"memoryLimitMB"`
	MaxParallelism int           `json:"maxParallelism"`
}

// DefaultMaxRows is the row cap applied when a view does not set one.
const DefaultMaxRows = 2000

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "formview",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			TableNames: TableNames{
				Forms:       "form",
				Submissions: "submission",
				Views:       "view",
			},
		},
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		View: ViewSettings{
			DefaultMaxRows: DefaultMaxRows,
			MaxRowsCeiling: 10000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		DuckDB: DuckDBConfig{
			QueryTimeout: 30 * time.Second,
		},
	}
}

// EffectiveMaxRows resolves the row cap for a view: its own maxRows when
// positive, otherwise the configured default, never above the ceiling.
func (c *Config) EffectiveMaxRows(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = c.View.DefaultMaxRows
	}
	if limit <= 0 {
		limit = DefaultMaxRows
	}
	if c.View.MaxRowsCeiling > 0 && limit > c.View.MaxRowsCeiling {
		limit = c.View.MaxRowsCeiling
	}
	return limit
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.MaxIdleConns > c.Database.MaxConnections {
		return &ConfigError{Field: "database.maxIdleConns", Message: "must be less than or equal to maxConnections"}
	}

	if c.Database.UseIAM && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required when useIAM is enabled"}
	}

	if c.Database.TableNames.Forms == "" || c.Database.TableNames.Submissions == "" || c.Database.TableNames.Views == "" {
		return &ConfigError{Field: "database.tableNames", Message: "forms, submissions and views must all be set"}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be a valid TCP port"}
	}

	if c.View.DefaultMaxRows <= 0 {
		return &ConfigError{Field: "view.defaultMaxRows", Message: "must be greater than 0"}
	}

	if c.View.MaxRowsCeiling < c.View.DefaultMaxRows {
		return &ConfigError{Field: "view.maxRowsCeiling", Message: "must be greater than or equal to defaultMaxRows"}
	}

	if c.DuckDB.MemoryLimitMB < 0 || c.DuckDB.MaxParallelism < 0 {
		return &ConfigError{Field: "duckdb", Message: "memoryLimitMB and maxParallelism must be >= 0"}
	}

	if (c.Snapshot.S3AccessKey == "") != (c.Snapshot.S3SecretKey == "") {
		return &ConfigError{Field: "snapshot.s3AccessKey", Message: "access key and secret key must be provided together"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
