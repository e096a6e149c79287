package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, formview.DefaultConfig(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  tableNames:
    views: saved_view
server:
  allowedOrigins: ["https://app.example.com"]
view:
  defaultMaxRows: 500
cache:
  ttl: 1m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("FORMVIEW_SERVER_PORT", "9090")
	t.Setenv("FORMVIEW_DATABASE_PASSWORD", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "saved_view", cfg.Database.TableNames.Views)
	assert.Equal(t, "form", cfg.Database.TableNames.Forms)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 500, cfg.View.DefaultMaxRows)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Database.Timeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("FORMVIEW_VIEW_DEFAULTMAXROWS", "20000")

	_, err := Load("")
	var cfgErr *formview.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "view.maxRowsCeiling", cfgErr.Field)
}
