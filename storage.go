package formview

import (
	"context"

	"github.com/google/uuid"
)

// SchemaReader loads form definitions.
type SchemaReader interface {
	GetForm(ctx context.Context, id uuid.UUID) (*Form, error)
	GetForms(ctx context.Context, ids []uuid.UUID) ([]*Form, error)
	ListForms(ctx context.Context) ([]*Form, error)
}

// SubmissionReader loads submissions. ListSubmissions returns rows ordered by
// created_at then id.
type SubmissionReader interface {
	GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error)
	GetSubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Submission, error)
	ListSubmissions(ctx context.Context, formIDs []uuid.UUID) ([]*Submission, error)
}

// SubmissionWriter persists validated submission payloads.
type SubmissionWriter interface {
	InsertSubmission(ctx context.Context, submission *Submission) error
	UpdateSubmissionData(ctx context.Context, id uuid.UUID, data map[string]any) error
}

// ViewReader loads saved views.
type ViewReader interface {
	GetView(ctx context.Context, id uuid.UUID) (*View, error)
}

// Store is the full storage collaborator. Lookups of missing rows return an
// *Error with ErrorTypeNotFound.
type Store interface {
	SchemaReader
	SubmissionReader
	SubmissionWriter
	ViewReader
}

// Manager validates submissions and materializes views on top of a Store.
type Manager interface {
	// PrepareSubmission normalizes relation fields and enforces required
	// fields. A rejected payload yields a *ValidationError.
	PrepareSubmission(ctx context.Context, formID uuid.UUID, data map[string]any) (map[string]any, error)
	CreateSubmission(ctx context.Context, formID uuid.UUID, data map[string]any) (*Submission, error)
	UpdateSubmission(ctx context.Context, formID, submissionID uuid.UUID, data map[string]any) (*Submission, error)
	ListSubmissions(ctx context.Context, formID uuid.UUID, filter SubmissionFilter) ([]*Submission, error)

	FieldValues(ctx context.Context, formID uuid.UUID, fieldKey string) ([]string, error)
	SubmissionOptions(ctx context.Context, formID uuid.UUID, fieldKey string) ([]SubmissionOption, error)

	ViewRows(ctx context.Context, viewID uuid.UUID) ([]Row, error)
	MaterializeView(ctx context.Context, cfg ViewConfig) ([]Row, error)

	// BackfillReferences moves relation values stored under a field's key to
	// its id across every form. MigrateFieldKey moves one form's values from
	// a renamed key to the id of the field now carrying newKey.
	BackfillReferences(ctx context.Context, dryRun bool) (*BackfillReport, error)
	MigrateFieldKey(ctx context.Context, formID uuid.UUID, oldKey, newKey string, dryRun bool) (*BackfillReport, error)
}
