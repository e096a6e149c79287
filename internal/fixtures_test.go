package internal

import (
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

var fixtureEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func textField(key string, required bool) formview.FieldDefinition {
	return formview.FieldDefinition{
		ID:       "fld_" + key,
		Key:      key,
		Type:     formview.FieldTypeOf(formview.FieldKindText),
		Required: required,
	}
}

func referenceField(id, key string, target uuid.UUID) formview.FieldDefinition {
	return formview.FieldDefinition{
		ID:           id,
		Key:          key,
		Type:         formview.FieldTypeOf(formview.FieldKindReference),
		TargetFormID: target.String(),
	}
}

func lookupField(id, key string, target uuid.UUID) formview.FieldDefinition {
	return formview.FieldDefinition{
		ID:   id,
		Key:  key,
		Type: formview.FieldTypeOf(formview.FieldKindSelect),
		DataSource: &formview.DataSource{
			Type:     formview.DataSourceFormLookup,
			FormID:   target.String(),
			FieldKey: "name",
		},
	}
}

func newForm(title string, schema ...formview.FieldDefinition) *formview.Form {
	return &formview.Form{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     title,
		Schema:    schema,
		CreatedAt: fixtureEpoch,
	}
}

// newSubmission creates a submission n seconds after the fixture epoch so
// lists built in call order are also sorted by created_at.
func newSubmission(form *formview.Form, n int, data map[string]any) *formview.Submission {
	return &formview.Submission{
		ID:        uuid.New(),
		FormID:    form.ID,
		Data:      data,
		CreatedAt: fixtureEpoch.Add(time.Duration(n) * time.Second),
	}
}
