package internal

import (
	"github.com/lychee-technology/formview"
)

// Every read of a field's stored value goes through this file so that the
// normalizer, the required-field validator, the visibility evaluator and the
// materializer agree on where a value lives.
//
// Storage rule: a relation field with an id stores its value under the id.
// Any other field, including a relation field without an id, stores under key.

// CanonicalKey returns the storage key of a field, or "" when it has none.
func CanonicalKey(field formview.FieldDefinition) string {
	if field.IsRelation() && field.ID != "" {
		return field.ID
	}
	return field.Key
}

// legacyKey returns the key a relation field may still be stored under from
// before ids existed. Non-relation fields have no legacy location.
func legacyKey(field formview.FieldDefinition) string {
	if !field.IsRelation() || field.Key == CanonicalKey(field) {
		return ""
	}
	return field.Key
}

// FieldValue reads a field's value from submission data: canonical key first,
// then the legacy key when the canonical entry is absent or nil.
func FieldValue(data map[string]any, field formview.FieldDefinition) any {
	if data == nil {
		return nil
	}
	if key := CanonicalKey(field); key != "" {
		if v := data[key]; v != nil {
			return v
		}
	}
	if legacy := legacyKey(field); legacy != "" {
		return data[legacy]
	}
	return nil
}

// fieldByKey returns the first schema field whose key equals fieldKey.
func fieldByKey(schema []formview.FieldDefinition, fieldKey string) (formview.FieldDefinition, bool) {
	for _, f := range schema {
		if f.Key == fieldKey {
			return f, true
		}
	}
	return formview.FieldDefinition{}, false
}

// StorageKeyFor maps a user-facing field key to the key its values are stored
// under. Unknown keys map to themselves.
func StorageKeyFor(schema []formview.FieldDefinition, fieldKey string) string {
	if f, ok := fieldByKey(schema, fieldKey); ok {
		if key := CanonicalKey(f); key != "" {
			return key
		}
	}
	return fieldKey
}

// valueForFieldKey resolves a user-facing field key against a submission.
func valueForFieldKey(data map[string]any, schema []formview.FieldDefinition, fieldKey string) any {
	if fieldKey == "" || data == nil {
		return nil
	}
	if f, ok := fieldByKey(schema, fieldKey); ok {
		return FieldValue(data, f)
	}
	return data[fieldKey]
}

// conditionValue resolves the controlling value of a condition. The literal
// key wins when present; otherwise a relation field with that key is read
// through its id.
func conditionValue(data map[string]any, schema []formview.FieldDefinition, fieldKey string) any {
	if v, ok := data[fieldKey]; ok {
		return v
	}
	for _, f := range schema {
		if f.Key == fieldKey && f.IsRelation() && f.ID != "" {
			return data[f.ID]
		}
	}
	return nil
}
