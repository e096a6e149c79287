package internal

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	store    *MemoryStore
	manager  *formManager
	people   *formview.Form
	tasks    *formview.Form
	alice    *formview.Submission
	task     *formview.Submission
	view     *formview.View
	outsider *formview.Submission
}

func newManagerFixture(t *testing.T) managerFixture {
	t.Helper()
	people := newForm("People", textField("name", true))
	other := newForm("Other", textField("name", false))
	assignee := referenceField("fld_assignee", "assignee", people.ID)
	assignee.Required = true
	details := textField("details", true)
	details.Conditions = []formview.ConditionRule{showWhen("kind", formview.OperatorEquals, "bug")}
	tasks := newForm("Tasks", textField("title", true), textField("kind", false), assignee, details)

	alice := newSubmission(people, 1, map[string]any{"name": "Alice"})
	bob := newSubmission(people, 2, map[string]any{"name": "Bob"})
	outsider := newSubmission(other, 3, map[string]any{"name": "Eve"})
	task := newSubmission(tasks, 4, map[string]any{"title": "Write docs", "assignee": alice.ID.String()})

	view := &formview.View{
		ID:    uuid.New(),
		Title: "Assignments",
		Config: formview.ViewConfig{
			Columns: []formview.ViewColumn{
				{ID: "person", FormID: people.ID.String(), FieldKey: "name"},
				{ID: "task", FormID: tasks.ID.String(), FieldKey: "title"},
			},
		},
	}

	store := NewMemoryStore(
		[]*formview.Form{people, other, tasks},
		[]*formview.Submission{alice, bob, outsider, task},
		[]*formview.View{view},
	)
	return managerFixture{
		store:    store,
		manager:  newFormManager(store, formview.DefaultConfig()),
		people:   people,
		tasks:    tasks,
		alice:    alice,
		task:     task,
		view:     view,
		outsider: outsider,
	}
}

func TestPrepareSubmission(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	data, err := f.manager.PrepareSubmission(ctx, f.tasks.ID, map[string]any{
		"title":    "Fix login",
		"kind":     "feature",
		"assignee": map[string]any{"id": f.alice.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title":        "Fix login",
		"kind":         "feature",
		"fld_assignee": f.alice.ID.String(),
	}, data)
}

func TestPrepareSubmissionRejectsBadReferenceBeforeRequired(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.manager.PrepareSubmission(ctx, f.tasks.ID, map[string]any{
		"fld_assignee": f.outsider.ID.String(),
	})
	require.Error(t, err)

	verr, ok := formview.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.IsReferenceError())
	assert.Equal(t, formview.FieldErrors{"fld_assignee": formview.MsgReferenceWrongForm}, verr.Errors)
}

func TestPrepareSubmissionRequiredFields(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.manager.PrepareSubmission(ctx, f.tasks.ID, map[string]any{"kind": "bug"})
	require.Error(t, err)

	verr, ok := formview.AsValidationError(err)
	require.True(t, ok)
	assert.False(t, verr.IsReferenceError())
	assert.Equal(t, formview.FieldErrors{
		"title":        formview.MsgFieldRequired,
		"fld_assignee": formview.MsgFieldRequired,
		"details":      formview.MsgFieldRequired,
	}, verr.Errors)
}

func TestPrepareSubmissionUnknownForm(t *testing.T) {
	f := newManagerFixture(t)
	_, err := f.manager.PrepareSubmission(context.Background(), uuid.New(), map[string]any{})
	assert.True(t, formview.IsNotFoundError(err))
}

func TestPrepareSubmissionUsesContextLoader(t *testing.T) {
	f := newManagerFixture(t)
	counting := &countingReader{SubmissionReader: f.store}
	ctx := ContextWithReferenceLoader(context.Background(), NewReferenceLoader(counting))

	for i := 0; i < 2; i++ {
		_, err := f.manager.PrepareSubmission(ctx, f.tasks.ID, map[string]any{
			"title":        "again",
			"fld_assignee": f.alice.ID.String(),
		})
		require.NoError(t, err)
	}
	// the second call is served from the loader cache
	assert.Equal(t, 1, counting.batches())
}

func TestCreateAndUpdateSubmission(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	created, err := f.manager.CreateSubmission(ctx, f.tasks.ID, map[string]any{
		"title":    "Plan",
		"assignee": f.alice.ID.String(),
	})
	require.NoError(t, err)
	stored, err := f.store.GetSubmission(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID.String(), stored.Data["fld_assignee"])
	assert.NotContains(t, stored.Data, "assignee")

	updated, err := f.manager.UpdateSubmission(ctx, f.tasks.ID, created.ID, map[string]any{
		"title":        "Plan v2",
		"fld_assignee": []any{f.alice.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Plan v2", updated.Data["title"])

	stored, err = f.store.GetSubmission(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.alice.ID.String()}, stored.Data["fld_assignee"])
}

func TestUpdateSubmissionWrongForm(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.manager.UpdateSubmission(ctx, f.people.ID, f.task.ID, map[string]any{"name": "x"})
	require.Error(t, err)
	assert.Equal(t, formview.ErrorTypeValidation, formview.TypeOf(err))
	assert.Contains(t, err.Error(), formview.MsgSubmissionFormMismatch)

	_, err = f.manager.UpdateSubmission(ctx, f.tasks.ID, uuid.New(), map[string]any{})
	assert.True(t, formview.IsNotFoundError(err))
}

func TestListSubmissionsFilterUsesCanonicalKey(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	_, err := f.manager.CreateSubmission(ctx, f.tasks.ID, map[string]any{
		"title":        "Other task",
		"fld_assignee": f.alice.ID.String(),
	})
	require.NoError(t, err)

	all, err := f.manager.ListSubmissions(ctx, f.tasks.ID, formview.SubmissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// the fixture task still stores its assignee under the legacy key
	filtered, err := f.manager.ListSubmissions(ctx, f.tasks.ID, formview.SubmissionFilter{Key: "assignee", Value: f.alice.ID.String()})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Other task", filtered[0].Data["title"])
}

func TestFieldValuesAndOptions(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	values, err := f.manager.FieldValues(ctx, f.people.ID, "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, values)

	options, err := f.manager.SubmissionOptions(ctx, f.people.ID, "name")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, f.alice.ID.String(), options[0].ID)

	_, err = f.manager.FieldValues(ctx, uuid.New(), "name")
	assert.True(t, formview.IsNotFoundError(err))
}

func TestViewRows(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	rows, err := f.manager.ViewRows(ctx, f.view.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, f.alice.ID.String()+":"+f.task.ID.String(), rows[0].ID)
	assert.Equal(t, "Write docs", rows[0].Values["task"])
	assert.Nil(t, rows[1].Values["task"])

	_, err = f.manager.ViewRows(ctx, uuid.New())
	assert.True(t, formview.IsNotFoundError(err))
}

func TestMaterializeViewClampsMaxRows(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	cfg := formview.DefaultConfig()
	cfg.View.DefaultMaxRows = 1
	cfg.View.MaxRowsCeiling = 1
	m := newFormManager(f.store, cfg)

	rec := &telemetryRecorder{}
	RegisterTelemetryEmitter(rec.emit)
	defer RegisterTelemetryEmitter(nil)

	viewCfg := f.view.Config
	viewCfg.MaxRows = 500
	rows, err := m.MaterializeView(ctx, viewCfg)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.True(t, rec.seen("formview_view_truncated"))
	assert.Equal(t, "true", rec.label("formview_view_truncated", "clamped"))
	assert.True(t, rec.seen("formview_view_rows"))
}

func TestMaterializeViewDefaultCapIsNotClamped(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	cfg := formview.DefaultConfig()
	cfg.View.DefaultMaxRows = 1
	m := newFormManager(f.store, cfg)

	rec := &telemetryRecorder{}
	RegisterTelemetryEmitter(rec.emit)
	defer RegisterTelemetryEmitter(nil)

	rows, err := m.MaterializeView(ctx, f.view.Config)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "false", rec.label("formview_view_truncated", "clamped"))
}

func TestBackfillReferences(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	report, err := f.manager.BackfillReferences(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, &formview.BackfillReport{Scanned: 4, Updated: 1, Skipped: 3, DryRun: true}, report)
	stored, err := f.store.GetSubmission(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Data, "assignee")

	report, err = f.manager.BackfillReferences(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	stored, err = f.store.GetSubmission(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID.String(), stored.Data["fld_assignee"])
	assert.NotContains(t, stored.Data, "assignee")

	report, err = f.manager.BackfillReferences(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
}

func TestMigrateFieldKey(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	_, err := f.manager.CreateSubmission(ctx, f.tasks.ID, map[string]any{
		"title":        "Already migrated",
		"fld_assignee": f.alice.ID.String(),
	})
	require.NoError(t, err)

	report, err := f.manager.MigrateFieldKey(ctx, f.tasks.ID, "assignee", "assignee", false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	stored, err := f.store.GetSubmission(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID.String(), stored.Data["fld_assignee"])

	_, err = f.manager.MigrateFieldKey(ctx, f.tasks.ID, "old", "missing", true)
	assert.True(t, formview.IsConfigurationError(err))
}

type countingReader struct {
	formview.SubmissionReader
	mu    sync.Mutex
	calls int
}

func (c *countingReader) GetSubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]*formview.Submission, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.SubmissionReader.GetSubmissionsByIDs(ctx, ids)
}

func (c *countingReader) batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type telemetryRecorder struct {
	mu     sync.Mutex
	names  []string
	labels map[string]map[string]string
}

func (r *telemetryRecorder) emit(_ context.Context, name string, labels map[string]string, _ any) {
	r.mu.Lock()
	r.names = append(r.names, name)
	if r.labels == nil {
		r.labels = map[string]map[string]string{}
	}
	r.labels[name] = labels
	r.mu.Unlock()
}

func (r *telemetryRecorder) label(name, key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.labels[name][key]
}

func (r *telemetryRecorder) seen(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}
