package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

type storePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// SubmissionDataUpdate replaces the data of one submission.
type SubmissionDataUpdate struct {
	ID   uuid.UUID
	Data map[string]any
}

// PostgresStore keeps forms, submissions and views in three tables with
// JSONB payload columns.
type PostgresStore struct {
	pool    storePool
	tables  formview.TableNames
	nowFunc func() time.Time
}

// NewPostgresStore creates a store over pool using the configured table names.
func NewPostgresStore(pool storePool, tables formview.TableNames) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		tables:  tables,
		nowFunc: time.Now,
	}
}

func (s *PostgresStore) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.nowFunc = now
}

func (s *PostgresStore) formColumns() string {
	return "id, project_id, title, description, slug, schema_, created_at"
}

func (s *PostgresStore) scanForm(row pgx.Row) (*formview.Form, error) {
	var (
		form        formview.Form
		description *string
		slug        *string
		schemaJSON  []byte
	)
	if err := row.Scan(&form.ID, &form.ProjectID, &form.Title, &description, &slug, &schemaJSON, &form.CreatedAt); err != nil {
		return nil, err
	}
	if description != nil {
		form.Description = *description
	}
	if slug != nil {
		form.Slug = *slug
	}
	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, &form.Schema); err != nil {
			return nil, fmt.Errorf("decode schema of form %s: %w", form.ID, err)
		}
	}
	return &form, nil
}

// GetForm loads one form.
func (s *PostgresStore) GetForm(ctx context.Context, id uuid.UUID) (*formview.Form, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.formColumns(), sanitizeIdentifier(s.tables.Forms))
	form, err := s.scanForm(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeFormNotFound, "Form", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get form: %w", err)
	}
	return form, nil
}

// GetForms loads the forms with the given ids. Missing ids are skipped.
func (s *PostgresStore) GetForms(ctx context.Context, ids []uuid.UUID) ([]*formview.Form, error) {
	if len(ids) == 0 {
		return []*formview.Form{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1::uuid[]) ORDER BY created_at, id",
		s.formColumns(), sanitizeIdentifier(s.tables.Forms))
	return s.queryForms(ctx, query, uuidStrings(ids))
}

// ListForms loads every form.
func (s *PostgresStore) ListForms(ctx context.Context) ([]*formview.Form, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", s.formColumns(), sanitizeIdentifier(s.tables.Forms))
	return s.queryForms(ctx, query)
}

func (s *PostgresStore) queryForms(ctx context.Context, query string, args ...any) ([]*formview.Form, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	defer rows.Close()

	forms := make([]*formview.Form, 0)
	for rows.Next() {
		form, err := s.scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forms: %w", err)
	}
	return forms, nil
}

func (s *PostgresStore) submissionColumns() string {
	return "id, form_id, data, created_at"
}

func scanSubmission(row pgx.Row) (*formview.Submission, error) {
	var (
		sub      formview.Submission
		dataJSON []byte
	)
	if err := row.Scan(&sub.ID, &sub.FormID, &dataJSON, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.Data = map[string]any{}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &sub.Data); err != nil {
			return nil, fmt.Errorf("decode data of submission %s: %w", sub.ID, err)
		}
		if sub.Data == nil {
			sub.Data = map[string]any{}
		}
	}
	return &sub, nil
}

// GetSubmission loads one submission.
func (s *PostgresStore) GetSubmission(ctx context.Context, id uuid.UUID) (*formview.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.submissionColumns(), sanitizeIdentifier(s.tables.Submissions))
	sub, err := scanSubmission(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// GetSubmissionsByIDs loads the submissions with the given ids. Missing ids are skipped.
func (s *PostgresStore) GetSubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]*formview.Submission, error) {
	if len(ids) == 0 {
		return []*formview.Submission{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1::uuid[])",
		s.submissionColumns(), sanitizeIdentifier(s.tables.Submissions))
	return s.querySubmissions(ctx, query, uuidStrings(ids))
}

// ListSubmissions loads every submission of the given forms.
func (s *PostgresStore) ListSubmissions(ctx context.Context, formIDs []uuid.UUID) ([]*formview.Submission, error) {
	if len(formIDs) == 0 {
		return []*formview.Submission{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE form_id = ANY($1::uuid[]) ORDER BY created_at, id",
		s.submissionColumns(), sanitizeIdentifier(s.tables.Submissions))
	return s.querySubmissions(ctx, query, uuidStrings(formIDs))
}

func (s *PostgresStore) querySubmissions(ctx context.Context, query string, args ...any) ([]*formview.Submission, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*formview.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

// InsertSubmission stores a new submission, assigning an id and creation
// time when they are unset.
func (s *PostgresStore) InsertSubmission(ctx context.Context, submission *formview.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission cannot be nil")
	}
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = s.nowFunc().UTC()
	}
	payload, err := json.Marshal(dataOrEmpty(submission.Data))
	if err != nil {
		return fmt.Errorf("encode submission data: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, form_id, data, created_at) VALUES ($1, $2, $3, $4)",
		sanitizeIdentifier(s.tables.Submissions))
	if _, err := s.pool.Exec(ctx, query, submission.ID, submission.FormID, payload, submission.CreatedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// UpdateSubmissionData replaces the data of an existing submission.
func (s *PostgresStore) UpdateSubmissionData(ctx context.Context, id uuid.UUID, data map[string]any) error {
	payload, err := json.Marshal(dataOrEmpty(data))
	if err != nil {
		return fmt.Errorf("encode submission data: %w", err)
	}
	query := fmt.Sprintf("UPDATE %s SET data = $1 WHERE id = $2", sanitizeIdentifier(s.tables.Submissions))
	tag, err := s.pool.Exec(ctx, query, payload, id)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", id.String())
	}
	return nil
}

// UpdateSubmissionsData applies several data replacements in one transaction.
func (s *PostgresStore) UpdateSubmissionsData(ctx context.Context, updates []SubmissionDataUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	query := fmt.Sprintf("UPDATE %s SET data = $1 WHERE id = $2", sanitizeIdentifier(s.tables.Submissions))
	for _, u := range updates {
		payload, err := json.Marshal(dataOrEmpty(u.Data))
		if err != nil {
			return fmt.Errorf("encode submission data: %w", err)
		}
		tag, err := tx.Exec(ctx, query, payload, u.ID)
		if err != nil {
			return fmt.Errorf("update submission %s: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", u.ID.String())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	zap.S().Debugw("batch updated submissions", "count", len(updates))
	return nil
}

// GetView loads one saved view.
func (s *PostgresStore) GetView(ctx context.Context, id uuid.UUID) (*formview.View, error) {
	query := fmt.Sprintf("SELECT id, project_id, title, description, config, created_at FROM %s WHERE id = $1",
		sanitizeIdentifier(s.tables.Views))

	var (
		view        formview.View
		description *string
		configJSON  []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&view.ID, &view.ProjectID, &view.Title, &description, &configJSON, &view.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, formview.NewNotFoundError(formview.ErrCodeViewNotFound, "View", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}
	if description != nil {
		view.Description = *description
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &view.Config); err != nil {
			return nil, fmt.Errorf("decode config of view %s: %w", view.ID, err)
		}
	}
	return &view, nil
}

func dataOrEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
