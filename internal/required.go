package internal

import (
	"github.com/lychee-technology/formview"
)

// ValidateRequired reports every visible required field whose value is empty.
// Hidden fields are never required.
func ValidateRequired(schema []formview.FieldDefinition, data map[string]any) formview.FieldErrors {
	errs := formview.FieldErrors{}
	for _, field := range schema {
		key := CanonicalKey(field)
		if key == "" {
			continue
		}
		if !IsFieldVisible(data, field, schema) {
			continue
		}
		if field.Required && isEmptyValue(FieldValue(data, field)) {
			errs.Set(key, formview.MsgFieldRequired)
		}
	}
	return errs
}
