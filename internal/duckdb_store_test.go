package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDuckDBConfig(t *testing.T) {
	assert.NoError(t, ValidateDuckDBConfig(formview.DuckDBConfig{}))
	assert.Error(t, ValidateDuckDBConfig(formview.DuckDBConfig{MemoryLimitMB: -1}))
	assert.Error(t, ValidateDuckDBConfig(formview.DuckDBConfig{MaxParallelism: -2}))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func seedDuckDB(t *testing.T, ctx context.Context, client *DuckDBClient, formID, subID, viewID uuid.UUID) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE form (id UUID, project_id UUID, title VARCHAR, description VARCHAR, slug VARCHAR, schema_ VARCHAR, created_at TIMESTAMP)`,
		`CREATE TABLE submission (id UUID, form_id UUID, data VARCHAR, created_at TIMESTAMP)`,
		`CREATE TABLE "view" (id UUID, project_id UUID, title VARCHAR, description VARCHAR, config VARCHAR, created_at TIMESTAMP)`,
		fmt.Sprintf(`INSERT INTO form VALUES ('%s', '%s', 'Contacts', NULL, 'contacts', '[{"id":"f1","key":"name","type":"text"}]', TIMESTAMP '2025-01-01 10:00:00')`,
			formID, uuid.New()),
		fmt.Sprintf(`INSERT INTO submission VALUES ('%s', '%s', '{"name":"Ada"}', TIMESTAMP '2025-01-02 10:00:00')`,
			subID, formID),
		fmt.Sprintf(`INSERT INTO "view" VALUES ('%s', '%s', 'All contacts', 'every row', '{"columns":[{"id":"n","formId":"%s","fieldKey":"name"}]}', TIMESTAMP '2025-01-03 10:00:00')`,
			viewID, uuid.New(), formID),
	}
	for _, stmt := range stmts {
		_, err := client.DB.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}

func TestDuckDBStoreReads(t *testing.T) {
	ctx := context.Background()
	client, err := NewDuckDBClient(ctx, formview.DuckDBConfig{})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.HealthCheck(ctx))

	formID, subID, viewID := uuid.New(), uuid.New(), uuid.New()
	seedDuckDB(t, ctx, client, formID, subID, viewID)
	store := NewDuckDBStore(client, testTables)

	form, err := store.GetForm(ctx, formID)
	require.NoError(t, err)
	assert.Equal(t, "Contacts", form.Title)
	assert.Equal(t, "contacts", form.Slug)
	assert.Empty(t, form.Description)
	require.Len(t, form.Schema, 1)
	assert.Equal(t, "f1", form.Schema[0].ID)

	forms, err := store.GetForms(ctx, []uuid.UUID{formID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, forms, 1)

	subs, err := store.ListSubmissions(ctx, []uuid.UUID{formID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, subID, subs[0].ID)
	assert.Equal(t, "Ada", subs[0].Data["name"])

	view, err := store.GetView(ctx, viewID)
	require.NoError(t, err)
	assert.Equal(t, "every row", view.Description)
	require.Len(t, view.Config.Columns, 1)

	_, err = store.GetSubmission(ctx, uuid.New())
	assert.True(t, formview.IsNotFoundError(err))

	err = store.InsertSubmission(ctx, &formview.Submission{FormID: formID})
	require.Error(t, err)
	assert.True(t, formview.IsConfigurationError(err))

	rows, err := newFormManager(store, nil).ViewRows(ctx, viewID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].Values["n"])
}
