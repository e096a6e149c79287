package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16"
	s3Image       = "rustfs/rustfs:latest"

	// S3 credentials the object store container is started with.
	S3AccessKey = "minio"
	S3SecretKey = "minio"
)

// TestHarness owns the containers and in-process databases one integration
// test talks to. Every Start has a matching Stop that is safe to defer.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGDSN       string
	PGDB        *sql.DB
	S3Container testcontainers.Container
	S3Endpoint  string
	Duck        *internal.DuckDBClient
}

type containerSpec struct {
	image string
	port  string
	env   map[string]string
}

// startContainer runs def and returns the container with its host:port.
func startContainer(ctx context.Context, def containerSpec) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        def.image,
			ExposedPorts: []string{def.port + "/tcp"},
			Env:          def.env,
			WaitingFor:   wait.ForListeningPort(nat.Port(def.port + "/tcp")).WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", def.image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return container, "", err
	}
	mapped, err := container.MappedPort(ctx, nat.Port(def.port))
	if err != nil {
		return container, "", err
	}
	return container, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

func terminate(ctx context.Context, c *testcontainers.Container) error {
	if *c == nil {
		return nil
	}
	err := (*c).Terminate(ctx)
	*c = nil
	return err
}

// StartPostgres starts Postgres and opens PGDB once the server answers pings.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	container, addr, err := startContainer(ctx, containerSpec{
		image: postgresImage,
		port:  "5432",
		env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "formview",
		},
	})
	h.PGContainer = container
	if err != nil {
		return "", err
	}

	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword("postgres", "password"),
		Host:     addr,
		Path:     "/formview",
		RawQuery: "sslmode=disable",
	}).String()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", err
	}
	if err := waitForPing(ctx, db, 20*time.Second); err != nil {
		db.Close()
		return "", err
	}
	h.PGDSN = dsn
	h.PGDB = db
	return dsn, nil
}

func waitForPing(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("postgres did not become ready: %w", err)
		case <-ticker.C:
		}
	}
}

// StopPostgres closes PGDB and terminates the container.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	return terminate(ctx, &h.PGContainer)
}

// StartS3 starts an S3-compatible object store and records its endpoint.
func (h *TestHarness) StartS3(ctx context.Context) (string, error) {
	container, addr, err := startContainer(ctx, containerSpec{
		image: s3Image,
		port:  "9000",
		env: map[string]string{
			"RUSTFS_ACCESS_KEY": S3AccessKey,
			"RUSTFS_SECRET_KEY": S3SecretKey,
		},
	})
	h.S3Container = container
	if err != nil {
		return "", err
	}
	h.S3Endpoint = "http://" + addr
	return h.S3Endpoint, nil
}

func (h *TestHarness) StopS3(ctx context.Context) error {
	return terminate(ctx, &h.S3Container)
}

// StartDuckDB opens an in-memory DuckDB database the fixtures can be copied into.
func (h *TestHarness) StartDuckDB(ctx context.Context) error {
	c, err := internal.NewDuckDBClient(ctx, formview.DuckDBConfig{})
	if err != nil {
		return err
	}
	h.Duck = c
	return nil
}

func (h *TestHarness) StopDuckDB() error {
	if h.Duck == nil {
		return nil
	}
	err := h.Duck.Close()
	h.Duck = nil
	return err
}
