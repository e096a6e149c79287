package formview

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DataSourceType distinguishes static option lists from lookups into another form.
type DataSourceType string

const (
	DataSourceStatic     DataSourceType = "static"
	DataSourceFormLookup DataSourceType = "form_lookup"
)

// DataSource describes where a field takes its options from.
type DataSource struct {
	Type     DataSourceType `json:"type" yaml:"type"`
	FormID   string         `json:"formId,omitempty" yaml:"formId,omitempty"`
	FieldKey string         `json:"fieldKey,omitempty" yaml:"fieldKey,omitempty"`
}

// FieldDefinition is one entry of a form schema. Schemas are authored by users,
// so ID may be missing on fields created before stable ids were introduced.
type FieldDefinition struct {
	ID              string          `json:"id,omitempty" yaml:"id,omitempty"`
	Key             string          `json:"key" yaml:"key"`
	Type            FieldType       `json:"type" yaml:"type"`
	Label           string          `json:"label,omitempty" yaml:"label,omitempty"`
	Required        bool            `json:"required,omitempty" yaml:"required,omitempty"`
	Options         []string        `json:"options,omitempty" yaml:"options,omitempty"`
	DataSource      *DataSource     `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	TargetFormID    string          `json:"targetFormId,omitempty" yaml:"targetFormId,omitempty"`
	DisplayFieldKey string          `json:"displayFieldKey,omitempty" yaml:"displayFieldKey,omitempty"`
	Conditions      []ConditionRule `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// IsRelation reports whether the field stores submission ids of another form.
func (f FieldDefinition) IsRelation() bool {
	if f.Type.Kind == FieldKindReference {
		return true
	}
	return f.DataSource != nil && f.DataSource.Type == DataSourceFormLookup
}

// RelationTargetFormID returns the raw id of the form a relation field points at.
// Reference fields use targetFormId, lookups use dataSource.formId.
func (f FieldDefinition) RelationTargetFormID() string {
	if f.Type.Kind == FieldKindReference {
		return f.TargetFormID
	}
	if f.DataSource != nil {
		return f.DataSource.FormID
	}
	return ""
}

// Form is a user-defined schema owned by a project.
type Form struct {
	ID          uuid.UUID         `json:"id" yaml:"id"`
	ProjectID   uuid.UUID         `json:"project_id" yaml:"project_id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Slug        string            `json:"slug,omitempty" yaml:"slug,omitempty"`
	Schema      []FieldDefinition `json:"schema_" yaml:"schema_"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
}

// Submission is one filled-in instance of a form.
type Submission struct {
	ID        uuid.UUID      `json:"id" yaml:"id"`
	FormID    uuid.UUID      `json:"form_id" yaml:"form_id"`
	Data      map[string]any `json:"data" yaml:"data"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// ViewColumn binds an output column to a field of one form.
type ViewColumn struct {
	ID       string `json:"id" yaml:"id"`
	FormID   string `json:"formId" yaml:"formId"`
	FieldKey string `json:"fieldKey" yaml:"fieldKey"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// ViewConfig describes a tabular join of submissions around an anchor form.
type ViewConfig struct {
	BaseFormID string       `json:"baseFormId,omitempty" yaml:"baseFormId,omitempty"`
	Columns    []ViewColumn `json:"columns" yaml:"columns"`
	MaxRows    int          `json:"maxRows,omitempty" yaml:"maxRows,omitempty"`
}

// View is a saved ViewConfig.
type View struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	ProjectID   uuid.UUID  `json:"project_id" yaml:"project_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Config      ViewConfig `json:"config" yaml:"config"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
}

// Row is one materialized view record.
type Row struct {
	ID        string
	CreatedAt time.Time
	FormID    string
	Values    map[string]any
}

// MarshalJSON renders the row as a single flat object. Column values share the
// namespace with id, created_at and form_id and win on collision.
func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+3)
	out["id"] = r.ID
	out["created_at"] = r.CreatedAt.Format(time.RFC3339Nano)
	out["form_id"] = r.FormID
	for k, v := range r.Values {
		out[k] = v
	}
	return json.Marshal(out)
}

// SubmissionOption is a picker entry for lookup fields.
type SubmissionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SubmissionFilter narrows ListSubmissions to submissions whose value under
// Key stringifies to Value. An empty Key or Value disables filtering.
type SubmissionFilter struct {
	Key   string
	Value string
}

// BackfillReport summarizes a storage-key migration run.
type BackfillReport struct {
	Scanned int  `json:"scanned"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	DryRun  bool `json:"dry_run"`
}
