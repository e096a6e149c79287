package internal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// Structural checks applied to form schemas and view configs that arrive
// from outside the store (HTTP bodies, snapshot files) before they are decoded.

const formSchemaDocument = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["type"],
    "properties": {
      "id": {"type": "string"},
      "key": {"type": "string"},
      "type": {"type": "string"},
      "label": {"type": "string"},
      "required": {"type": "boolean"},
      "options": {"type": "array", "items": {"type": "string"}},
      "targetFormId": {"type": "string"},
      "displayFieldKey": {"type": "string"},
      "dataSource": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "formId": {"type": "string"},
          "fieldKey": {"type": "string"}
        }
      },
      "conditions": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["fieldKey", "operator"],
          "properties": {
            "fieldKey": {"type": "string"},
            "operator": {"type": "string"},
            "action": {"type": "string"}
          }
        }
      }
    }
  }
}`

const viewConfigDocument = `{
  "type": "object",
  "required": ["columns"],
  "properties": {
    "baseFormId": {"type": "string"},
    "maxRows": {"type": "number"},
    "columns": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "formId": {"type": "string"},
          "fieldKey": {"type": "string"},
          "label": {"type": "string"}
        }
      }
    }
  }
}`

var (
	resolvedOnce     sync.Once
	resolvedForm     *jsonschema.Resolved
	resolvedView     *jsonschema.Resolved
	resolveSchemaErr error
)

func resolveDocument(raw string) (*jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve JSON schema: %w", err)
	}
	return resolved, nil
}

func documentSchemas() (*jsonschema.Resolved, *jsonschema.Resolved, error) {
	resolvedOnce.Do(func() {
		resolvedForm, resolveSchemaErr = resolveDocument(formSchemaDocument)
		if resolveSchemaErr != nil {
			return
		}
		resolvedView, resolveSchemaErr = resolveDocument(viewConfigDocument)
	})
	return resolvedForm, resolvedView, resolveSchemaErr
}

// DecodeFormSchema checks raw against the field definition shape and decodes it.
func DecodeFormSchema(raw []byte) ([]formview.FieldDefinition, error) {
	formDoc, _, err := documentSchemas()
	if err != nil {
		return nil, formview.NewInternalError("form schema document unavailable", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "form schema is not valid JSON").WithCause(err)
	}
	if err := formDoc.Validate(generic); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeSchemaInvalid, "form schema is malformed").WithCause(err)
	}
	var fields []formview.FieldDefinition
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeSchemaInvalid, "form schema is malformed").WithCause(err)
	}
	for _, f := range fields {
		for _, rule := range f.Conditions {
			if !rule.Operator.IsValid() {
				return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeSchemaInvalid,
					fmt.Sprintf("unknown condition operator %q", rule.Operator)).WithField(CanonicalKey(f))
			}
		}
		if !f.Type.IsKnown() {
			zap.S().Debugw("unknown field type treated as text", "field", CanonicalKey(f), "type", f.Type.String())
		}
	}
	return fields, nil
}

// DecodeViewConfig checks raw against the view config shape and decodes it.
func DecodeViewConfig(raw []byte) (formview.ViewConfig, error) {
	var cfg formview.ViewConfig
	_, viewDoc, err := documentSchemas()
	if err != nil {
		return cfg, formview.NewInternalError("view config document unavailable", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return cfg, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "view config is not valid JSON").WithCause(err)
	}
	if err := viewDoc.Validate(generic); err != nil {
		return cfg, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidViewConfig, "view config is malformed").WithCause(err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidViewConfig, "view config is malformed").WithCause(err)
	}
	return cfg, nil
}
