package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	code := m.Run()
	_ = logger.Sync()
	os.Exit(code)
}

type serverFixture struct {
	handler  http.Handler
	store    *internal.MemoryStore
	projects *formview.Form
	tasks    *formview.Form
	apollo   *formview.Submission
	design   *formview.Submission
	view     *formview.View
}

func newServerFixture(t *testing.T) serverFixture {
	t.Helper()
	epoch := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	projects := &formview.Form{
		ID:    uuid.New(),
		Title: "Projects",
		Schema: []formview.FieldDefinition{
			{ID: "fld_name", Key: "name", Type: formview.FieldTypeOf(formview.FieldKindText), Required: true},
		},
		CreatedAt: epoch,
	}
	tasks := &formview.Form{
		ID:    uuid.New(),
		Title: "Tasks",
		Schema: []formview.FieldDefinition{
			{ID: "fld_title", Key: "title", Type: formview.FieldTypeOf(formview.FieldKindText), Required: true},
			{
				ID:           "fld_project",
				Key:          "project",
				Type:         formview.FieldTypeOf(formview.FieldKindReference),
				TargetFormID: projects.ID.String(),
			},
		},
		CreatedAt: epoch,
	}
	apollo := &formview.Submission{
		ID:        uuid.New(),
		FormID:    projects.ID,
		Data:      map[string]any{"name": "Apollo"},
		CreatedAt: epoch.Add(time.Second),
	}
	design := &formview.Submission{
		ID:        uuid.New(),
		FormID:    tasks.ID,
		Data:      map[string]any{"title": "Design", "fld_project": apollo.ID.String()},
		CreatedAt: epoch.Add(2 * time.Second),
	}
	view := &formview.View{
		ID:    uuid.New(),
		Title: "Project tasks",
		Config: formview.ViewConfig{
			BaseFormID: projects.ID.String(),
			Columns: []formview.ViewColumn{
				{ID: "project", FormID: projects.ID.String(), FieldKey: "name", Label: "Project"},
				{ID: "task", FormID: tasks.ID.String(), FieldKey: "title", Label: "Task"},
			},
		},
		CreatedAt: epoch,
	}

	store := internal.NewMemoryStore(
		[]*formview.Form{projects, tasks},
		[]*formview.Submission{apollo, design},
		[]*formview.View{view},
	)
	cfg := formview.DefaultConfig()
	server := NewServer(internal.NewManager(store, cfg), store, cfg)
	return serverFixture{
		handler:  server.Routes(),
		store:    store,
		projects: projects,
		tasks:    tasks,
		apollo:   apollo,
		design:   design,
		view:     view,
	}
}

func (f serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleCreateSubmissionNormalizesReference(t *testing.T) {
	f := newServerFixture(t)
	payload := `{"data": {"title": "Build", "fld_project": {"id": "` + f.apollo.ID.String() + `"}}}`

	rec := f.do(t, http.MethodPost, "/api/v1/forms/"+f.tasks.ID.String()+"/submissions", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sub formview.Submission
	decodeBody(t, rec, &sub)
	assert.Equal(t, f.tasks.ID, sub.FormID)
	assert.Equal(t, f.apollo.ID.String(), sub.Data["fld_project"])

	stored, err := f.store.GetSubmission(t.Context(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Build", stored.Data["title"])
}

func TestHandleCreateSubmissionRejectsDanglingReference(t *testing.T) {
	f := newServerFixture(t)
	payload := `{"data": {"title": "Orphan", "fld_project": "` + uuid.NewString() + `"}}`

	rec := f.do(t, http.MethodPost, "/api/v1/forms/"+f.tasks.ID.String()+"/submissions", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, formview.MsgReferenceNotFound, body["validation_errors"]["fld_project"])
}

func TestHandleCreateSubmissionMissingRequired(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/forms/"+f.tasks.ID.String()+"/submissions", `{"data": {}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, formview.MsgFieldRequired, body["validation_errors"]["title"])
}

func TestHandleCreateSubmissionBadInput(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/forms/not-a-uuid/submissions", `{"data": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/forms/"+f.tasks.ID.String()+"/submissions", `{"data":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/forms/"+uuid.NewString()+"/submissions", `{"data": {}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleValidateSubmissionDoesNotStore(t *testing.T) {
	f := newServerFixture(t)
	payload := `{"data": {"title": "Draft", "fld_project": "` + f.apollo.ID.String() + `"}}`

	rec := f.do(t, http.MethodPost, "/api/v1/forms/"+f.tasks.ID.String()+"/submissions/validate", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body submissionRequest
	decodeBody(t, rec, &body)
	assert.Equal(t, "Draft", body.Data["title"])

	subs, err := f.store.ListSubmissions(t.Context(), []uuid.UUID{f.tasks.ID})
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestHandleUpdateSubmission(t *testing.T) {
	f := newServerFixture(t)
	path := "/api/v1/forms/" + f.tasks.ID.String() + "/submissions/" + f.design.ID.String()

	rec := f.do(t, http.MethodPut, path, `{"data": {"title": "Design v2"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.store.GetSubmission(t.Context(), f.design.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design v2", stored.Data["title"])

	wrongForm := "/api/v1/forms/" + f.projects.ID.String() + "/submissions/" + f.design.ID.String()
	rec = f.do(t, http.MethodPut, wrongForm, `{"data": {"name": "x"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListSubmissionsFilter(t *testing.T) {
	f := newServerFixture(t)
	base := "/api/v1/forms/" + f.tasks.ID.String() + "/submissions"

	rec := f.do(t, http.MethodGet, base+"?filter_key=title&filter_value=Design", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []formview.Submission
	decodeBody(t, rec, &subs)
	require.Len(t, subs, 1)
	assert.Equal(t, f.design.ID, subs[0].ID)

	rec = f.do(t, http.MethodGet, base+"?filter_key=title&filter_value=Nope", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleFieldValuesAndOptions(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/forms/"+f.tasks.ID.String()+"/fields/title/values", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Design"]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/forms/"+f.projects.ID.String()+"/fields/name/submission-options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var options []formview.SubmissionOption
	decodeBody(t, rec, &options)
	require.Len(t, options, 1)
	assert.Equal(t, formview.SubmissionOption{ID: f.apollo.ID.String(), Label: "Apollo"}, options[0])
}

func TestHandleViewData(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/views/"+f.view.ID.String()+"/data", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rows []map[string]any
	decodeBody(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, f.apollo.ID.String()+":"+f.design.ID.String(), rows[0]["id"])
	assert.Equal(t, "Apollo", rows[0]["project"])
	assert.Equal(t, "Design", rows[0]["task"])

	rec = f.do(t, http.MethodGet, "/api/v1/views/"+uuid.NewString()+"/data", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleViewExport(t *testing.T) {
	f := newServerFixture(t)
	path := "/api/v1/views/" + f.view.ID.String() + "/export"

	rec := f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "view-"+f.view.ID.String()+".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,created_at,form_id,Project,Task", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",Apollo,Design"))

	rec = f.do(t, http.MethodGet, path+"?format=yaml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// brokenPipeWriter records what was written and then reports a failed write.
type brokenPipeWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenPipeWriter) Write(p []byte) (int, error) {
	_, _ = w.ResponseRecorder.Write(p)
	return 0, errors.New("broken pipe")
}

func TestHandleViewExportWriteFailureIsLogged(t *testing.T) {
	f := newServerFixture(t)
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/views/"+f.view.ID.String()+"/export", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(brokenPipeWriter{rec}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,created_at,form_id,Project,Task"))
	assert.NotContains(t, rec.Body.String(), `"error"`)
	assert.Equal(t, 1, logs.FilterMessage("view export failed").Len())
}

func TestHandleViewPreview(t *testing.T) {
	f := newServerFixture(t)
	cfg := `{"columns": [{"id": "task", "formId": "` + f.tasks.ID.String() + `", "fieldKey": "title"}]}`

	rec := f.do(t, http.MethodPost, "/api/v1/views/preview", cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rows []map[string]any
	decodeBody(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Design", rows[0]["task"])

	rec = f.do(t, http.MethodPost, "/api/v1/views/preview", `{"columns": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
