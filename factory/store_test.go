package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_SnapshotFile(t *testing.T) {
	formID := uuid.New()
	doc := `{"forms":[{"id":"` + formID.String() + `","title":"Contacts","schema_":[{"key":"name","type":"text"}]}]}`
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, closeFn, err := OpenStore(context.Background(), formview.DefaultConfig(), path)
	require.NoError(t, err)
	defer closeFn()

	form, err := store.GetForm(context.Background(), formID)
	require.NoError(t, err)
	assert.Equal(t, "Contacts", form.Title)
}

func TestOpenStore_MissingSnapshot(t *testing.T) {
	_, closeFn, err := OpenStore(context.Background(), formview.DefaultConfig(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.NotNil(t, closeFn)
	assert.True(t, formview.IsNotFoundError(err))
}

func TestOpenStore_DuckDBNeedsPath(t *testing.T) {
	_, _, err := OpenStore(context.Background(), formview.DefaultConfig(), SourceDuckDBPrefix)
	require.Error(t, err)
	assert.True(t, formview.IsConfigurationError(err))
}

func TestNewStoreWithConfig_CustomTables(t *testing.T) {
	withTableCollector(t, func(pool queryPool) ([]string, error) {
		return []string{"forms_v2", "submissions_v2", "views_v2"}, nil
	})

	config := formview.DefaultConfig()
	config.Database.TableNames = formview.TableNames{Forms: "forms_v2", Submissions: "submissions_v2", Views: "views_v2"}

	store, err := NewStoreWithConfig(config, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestDefaultSource(t *testing.T) {
	config := formview.DefaultConfig()
	assert.Equal(t, SourcePostgres, DefaultSource(config))

	config.DuckDB.DBPath = "/data/forms.duckdb"
	assert.Equal(t, "duckdb:/data/forms.duckdb", DefaultSource(config))

	config.Snapshot.Source = "s3://bucket/project.yaml"
	assert.Equal(t, "s3://bucket/project.yaml", DefaultSource(config))
}
