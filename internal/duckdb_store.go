package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

// DuckDBStore reads forms, submissions and views from a DuckDB file laid out
// like the relational tables. It is read-only: writes fail with a
// configuration error.
type DuckDBStore struct {
	client *DuckDBClient
	tables formview.TableNames
}

// NewDuckDBStore creates a store over an open client.
func NewDuckDBStore(client *DuckDBClient, tables formview.TableNames) *DuckDBStore {
	return &DuckDBStore{client: client, tables: tables}
}

func (s *DuckDBStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.client.queryTimeout())
}

const duckFormColumns = "CAST(id AS VARCHAR), CAST(project_id AS VARCHAR), title, description, slug, CAST(schema_ AS VARCHAR), created_at"

type duckScanner interface {
	Scan(dest ...any) error
}

func scanDuckForm(row duckScanner) (*formview.Form, error) {
	var (
		id, projectID     string
		title             string
		description, slug sql.NullString
		schemaJSON        sql.NullString
		createdAt         time.Time
	)
	if err := row.Scan(&id, &projectID, &title, &description, &slug, &schemaJSON, &createdAt); err != nil {
		return nil, err
	}
	formID, err := mustUUIDColumn("id", id)
	if err != nil {
		return nil, err
	}
	project, err := mustUUIDColumn("project_id", projectID)
	if err != nil {
		return nil, err
	}
	form := &formview.Form{
		ID:          formID,
		ProjectID:   project,
		Title:       title,
		Description: description.String,
		Slug:        slug.String,
		CreatedAt:   createdAt,
	}
	if schemaJSON.Valid && schemaJSON.String != "" {
		if err := json.Unmarshal([]byte(schemaJSON.String), &form.Schema); err != nil {
			return nil, fmt.Errorf("decode schema of form %s: %w", form.ID, err)
		}
	}
	return form, nil
}

// GetForm loads one form.
func (s *DuckDBStore) GetForm(ctx context.Context, id uuid.UUID) (*formview.Form, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE CAST(id AS VARCHAR) = ?", duckFormColumns, sanitizeIdentifier(s.tables.Forms))
	form, err := scanDuckForm(s.client.DB.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeFormNotFound, "Form", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("duckdb get form: %w", err)
	}
	return form, nil
}

// GetForms loads the forms with the given ids. Missing ids are skipped.
func (s *DuckDBStore) GetForms(ctx context.Context, ids []uuid.UUID) ([]*formview.Form, error) {
	if len(ids) == 0 {
		return []*formview.Form{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE CAST(id AS VARCHAR) IN (%s) ORDER BY created_at, id",
		duckFormColumns, sanitizeIdentifier(s.tables.Forms), placeholders(len(ids)))
	return s.queryForms(ctx, query, uuidArgs(ids)...)
}

// ListForms loads every form.
func (s *DuckDBStore) ListForms(ctx context.Context) ([]*formview.Form, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", duckFormColumns, sanitizeIdentifier(s.tables.Forms))
	return s.queryForms(ctx, query)
}

func (s *DuckDBStore) queryForms(ctx context.Context, query string, args ...any) ([]*formview.Form, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb query forms: %w", err)
	}
	defer rows.Close()

	forms := make([]*formview.Form, 0)
	for rows.Next() {
		form, err := scanDuckForm(rows)
		if err != nil {
			return nil, fmt.Errorf("duckdb scan form: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb iterate forms: %w", err)
	}
	return forms, nil
}

const duckSubmissionColumns = "CAST(id AS VARCHAR), CAST(form_id AS VARCHAR), CAST(data AS VARCHAR), created_at"

func scanDuckSubmission(row duckScanner) (*formview.Submission, error) {
	var (
		id, formID string
		dataJSON   sql.NullString
		createdAt  time.Time
	)
	if err := row.Scan(&id, &formID, &dataJSON, &createdAt); err != nil {
		return nil, err
	}
	subID, err := mustUUIDColumn("id", id)
	if err != nil {
		return nil, err
	}
	form, err := mustUUIDColumn("form_id", formID)
	if err != nil {
		return nil, err
	}
	sub := &formview.Submission{ID: subID, FormID: form, CreatedAt: createdAt, Data: map[string]any{}}
	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &sub.Data); err != nil {
			return nil, fmt.Errorf("decode data of submission %s: %w", sub.ID, err)
		}
		if sub.Data == nil {
			sub.Data = map[string]any{}
		}
	}
	return sub, nil
}

// GetSubmission loads one submission.
func (s *DuckDBStore) GetSubmission(ctx context.Context, id uuid.UUID) (*formview.Submission, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE CAST(id AS VARCHAR) = ?", duckSubmissionColumns, sanitizeIdentifier(s.tables.Submissions))
	sub, err := scanDuckSubmission(s.client.DB.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("duckdb get submission: %w", err)
	}
	return sub, nil
}

// GetSubmissionsByIDs loads the submissions with the given ids. Missing ids are skipped.
func (s *DuckDBStore) GetSubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]*formview.Submission, error) {
	if len(ids) == 0 {
		return []*formview.Submission{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE CAST(id AS VARCHAR) IN (%s)",
		duckSubmissionColumns, sanitizeIdentifier(s.tables.Submissions), placeholders(len(ids)))
	return s.querySubmissions(ctx, query, uuidArgs(ids)...)
}

// ListSubmissions loads every submission of the given forms.
func (s *DuckDBStore) ListSubmissions(ctx context.Context, formIDs []uuid.UUID) ([]*formview.Submission, error) {
	if len(formIDs) == 0 {
		return []*formview.Submission{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE CAST(form_id AS VARCHAR) IN (%s) ORDER BY created_at, id",
		duckSubmissionColumns, sanitizeIdentifier(s.tables.Submissions), placeholders(len(formIDs)))
	return s.querySubmissions(ctx, query, uuidArgs(formIDs)...)
}

func (s *DuckDBStore) querySubmissions(ctx context.Context, query string, args ...any) ([]*formview.Submission, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb query submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*formview.Submission, 0)
	for rows.Next() {
		sub, err := scanDuckSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("duckdb scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb iterate submissions: %w", err)
	}
	return subs, nil
}

// GetView loads one saved view.
func (s *DuckDBStore) GetView(ctx context.Context, id uuid.UUID) (*formview.View, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT CAST(id AS VARCHAR), CAST(project_id AS VARCHAR), title, description, CAST(config AS VARCHAR), created_at FROM %s WHERE CAST(id AS VARCHAR) = ?",
		sanitizeIdentifier(s.tables.Views))

	var (
		rawID, rawProject string
		title             string
		description       sql.NullString
		configJSON        sql.NullString
		createdAt         time.Time
	)
	err := s.client.DB.QueryRowContext(ctx, query, id.String()).Scan(&rawID, &rawProject, &title, &description, &configJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeViewNotFound, "View", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("duckdb get view: %w", err)
	}
	viewID, err := mustUUIDColumn("id", rawID)
	if err != nil {
		return nil, err
	}
	project, err := mustUUIDColumn("project_id", rawProject)
	if err != nil {
		return nil, err
	}
	view := &formview.View{ID: viewID, ProjectID: project, Title: title, Description: description.String, CreatedAt: createdAt}
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &view.Config); err != nil {
			return nil, fmt.Errorf("decode config of view %s: %w", view.ID, err)
		}
	}
	return view, nil
}

// InsertSubmission always fails: DuckDB snapshots are read-only.
func (s *DuckDBStore) InsertSubmission(ctx context.Context, submission *formview.Submission) error {
	return readOnlyError("insert submission")
}

// UpdateSubmissionData always fails: DuckDB snapshots are read-only.
func (s *DuckDBStore) UpdateSubmissionData(ctx context.Context, id uuid.UUID, data map[string]any) error {
	return readOnlyError("update submission")
}

func readOnlyError(op string) error {
	return formview.NewConfigurationError(formview.ErrCodeReadOnlyStore, "store is read-only").
		WithDetail("operation", op)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func uuidArgs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
