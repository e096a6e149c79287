package e2e_harness

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/snapshot"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Fixed ids so every store sees the same rows.
var (
	ProjectsFormID = uuid.MustParse("3f0d8c1e-5a7b-4c2d-9e10-000000000001")
	TasksFormID    = uuid.MustParse("3f0d8c1e-5a7b-4c2d-9e10-000000000002")
	ViewID         = uuid.MustParse("3f0d8c1e-5a7b-4c2d-9e10-0000000000f1")

	apolloID = uuid.MustParse("7a51c0de-0000-4000-8000-000000000001")
	geminiID = uuid.MustParse("7a51c0de-0000-4000-8000-000000000002")
	designID = uuid.MustParse("7a51c0de-0000-4000-8000-000000000011")
	buildID  = uuid.MustParse("7a51c0de-0000-4000-8000-000000000012")
)

var fixtureEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// ProjectFixture returns a two-form project: tasks reference projects, one
// task still stores its reference under the legacy key.
func ProjectFixture() *snapshot.Snapshot {
	projectID := uuid.MustParse("3f0d8c1e-5a7b-4c2d-9e10-0000000000aa")
	projects := &formview.Form{
		ID:        ProjectsFormID,
		ProjectID: projectID,
		Title:     "Projects",
		Schema: []formview.FieldDefinition{
			{ID: "fld_name", Key: "name", Type: formview.FieldTypeOf(formview.FieldKindText), Required: true},
		},
		CreatedAt: fixtureEpoch,
	}
	tasks := &formview.Form{
		ID:        TasksFormID,
		ProjectID: projectID,
		Title:     "Tasks",
		Schema: []formview.FieldDefinition{
			{ID: "fld_title", Key: "title", Type: formview.FieldTypeOf(formview.FieldKindText), Required: true},
			{ID: "fld_project", Key: "project", Type: formview.FieldTypeOf(formview.FieldKindReference), TargetFormID: ProjectsFormID.String()},
		},
		CreatedAt: fixtureEpoch.Add(time.Second),
	}

	at := func(n int) time.Time { return fixtureEpoch.Add(time.Duration(n) * time.Minute) }
	subs := []*formview.Submission{
		{ID: apolloID, FormID: ProjectsFormID, Data: map[string]any{"name": "Apollo"}, CreatedAt: at(1)},
		{ID: geminiID, FormID: ProjectsFormID, Data: map[string]any{"name": "Gemini"}, CreatedAt: at(2)},
		{ID: designID, FormID: TasksFormID, Data: map[string]any{"title": "Design", "fld_project": apolloID.String()}, CreatedAt: at(3)},
		{ID: buildID, FormID: TasksFormID, Data: map[string]any{"title": "Build", "project": []any{apolloID.String()}}, CreatedAt: at(4)},
	}

	view := &formview.View{
		ID:        ViewID,
		ProjectID: projectID,
		Title:     "Tasks by project",
		Config: formview.ViewConfig{
			BaseFormID: ProjectsFormID.String(),
			Columns: []formview.ViewColumn{
				{ID: "project", FormID: ProjectsFormID.String(), FieldKey: "name", Label: "Project"},
				{ID: "task", FormID: TasksFormID.String(), FieldKey: "title", Label: "Task"},
			},
		},
		CreatedAt: at(5),
	}

	return &snapshot.Snapshot{
		Forms:       []*formview.Form{projects, tasks},
		Submissions: subs,
		Views:       []*formview.View{view},
	}
}

// EncodeSnapshot renders snap in the document layout snapshot.Parse reads.
func EncodeSnapshot(snap *snapshot.Snapshot) ([]byte, error) {
	return json.Marshal(map[string]any{
		"forms":       snap.Forms,
		"submissions": snap.Submissions,
		"views":       snap.Views,
	})
}

var postgresTables = []string{
	`CREATE TABLE IF NOT EXISTS form (
  id UUID PRIMARY KEY,
  project_id UUID NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  slug TEXT,
  schema_ JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS submission (
  id UUID PRIMARY KEY,
  form_id UUID NOT NULL REFERENCES form(id),
  data JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS view (
  id UUID PRIMARY KEY,
  project_id UUID NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  config JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);`,
}

// SeedPostgres creates the form, submission and view tables and copies snap into them.
func SeedPostgres(ctx context.Context, db *sql.DB, snap *snapshot.Snapshot) error {
	for _, s := range postgresTables {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return insertSnapshot(ctx, db, snap, postgresInserts)
}

// SeedDuckDB copies snap into an in-memory DuckDB database with the layout
// DuckDBStore reads.
func SeedDuckDB(ctx context.Context, duck *internal.DuckDBClient, snap *snapshot.Snapshot) error {
	if duck == nil || duck.DB == nil {
		return fmt.Errorf("duckdb client is nil")
	}
	stmts := []string{
		`CREATE TABLE form (id UUID, project_id UUID, title VARCHAR, description VARCHAR, slug VARCHAR, schema_ VARCHAR, created_at TIMESTAMP)`,
		`CREATE TABLE submission (id UUID, form_id UUID, data VARCHAR, created_at TIMESTAMP)`,
		`CREATE TABLE "view" (id UUID, project_id UUID, title VARCHAR, description VARCHAR, config VARCHAR, created_at TIMESTAMP)`,
	}
	for _, s := range stmts {
		if _, err := duck.DB.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create duckdb table: %w", err)
		}
	}
	return insertSnapshot(ctx, duck.DB, snap, duckInserts)
}

type insertStatements struct {
	form, submission, view string
}

var postgresInserts = insertStatements{
	form:       `INSERT INTO form (id, project_id, title, description, slug, schema_, created_at) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
	submission: `INSERT INTO submission (id, form_id, data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
	view:       `INSERT INTO view (id, project_id, title, description, config, created_at) VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
}

var duckInserts = insertStatements{
	form:       `INSERT INTO form VALUES (CAST(? AS UUID), CAST(? AS UUID), ?, ?, ?, ?, ?)`,
	submission: `INSERT INTO submission VALUES (CAST(? AS UUID), CAST(? AS UUID), ?, ?)`,
	view:       `INSERT INTO "view" VALUES (CAST(? AS UUID), CAST(? AS UUID), ?, ?, ?, ?)`,
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertSnapshot(ctx context.Context, db *sql.DB, snap *snapshot.Snapshot, q insertStatements) error {
	for _, f := range snap.Forms {
		schema, err := json.Marshal(f.Schema)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, q.form, f.ID.String(), f.ProjectID.String(), f.Title,
			nullable(f.Description), nullable(f.Slug), string(schema), f.CreatedAt); err != nil {
			return fmt.Errorf("insert form: %w", err)
		}
	}
	for _, s := range snap.Submissions {
		data, err := json.Marshal(s.Data)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, q.submission, s.ID.String(), s.FormID.String(), string(data), s.CreatedAt); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
	}
	for _, v := range snap.Views {
		cfg, err := json.Marshal(v.Config)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, q.view, v.ID.String(), v.ProjectID.String(), v.Title,
			nullable(v.Description), string(cfg), v.CreatedAt); err != nil {
			return fmt.Errorf("insert view: %w", err)
		}
	}
	return nil
}

// UploadObject puts body at s3://bucket/key on an S3-compatible endpoint,
// creating the bucket when needed.
func UploadObject(ctx context.Context, endpoint, accessKey, secretKey, bucket, key string, body []byte) error {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, cerr := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); cerr != nil {
			var apiErr smithy.APIError
			if !errors.As(cerr, &apiErr) {
				return fmt.Errorf("create bucket: %w", cerr)
			}
			if code := apiErr.ErrorCode(); code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return fmt.Errorf("create bucket: %w", cerr)
			}
		}
	}

	uploader := manager.NewUploader(s3Client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}
