package internal

import (
	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

// SubmissionLookup resolves a referenced submission. The second result is
// false when no submission has that id.
type SubmissionLookup func(id uuid.UUID) (*formview.Submission, bool)

// LookupFromSlice builds a SubmissionLookup over an in-memory slice.
func LookupFromSlice(submissions []*formview.Submission) SubmissionLookup {
	byID := make(map[uuid.UUID]*formview.Submission, len(submissions))
	for _, s := range submissions {
		if s != nil {
			byID[s.ID] = s
		}
	}
	return func(id uuid.UUID) (*formview.Submission, bool) {
		s, ok := byID[id]
		return s, ok
	}
}

// NormalizeRelationFields moves every relation value onto its field id,
// rewrites it to the canonical id shape and checks each referenced submission.
// data is not modified. A non-empty error map means the payload must be rejected.
func NormalizeRelationFields(schema []formview.FieldDefinition, data map[string]any, lookup SubmissionLookup) (map[string]any, formview.FieldErrors) {
	out := cloneData(data)
	errs := formview.FieldErrors{}

	for _, field := range schema {
		if !field.IsRelation() || field.ID == "" {
			continue
		}
		canonical := field.ID

		raw := out[canonical]
		if raw == nil && field.Key != "" {
			raw = out[field.Key]
		}
		normalized := normalizeReferenceValue(raw)

		if field.Key != "" && field.Key != canonical {
			delete(out, field.Key)
		}

		if normalized == nil {
			delete(out, canonical)
			continue
		}

		if msg := checkReferences(normalizedIDs(normalized), field.RelationTargetFormID(), lookup); msg != "" {
			errs.Set(canonical, msg)
			continue
		}
		out[canonical] = normalized
	}

	return out, errs
}

// checkReferences returns the message for the first id that fails, or "".
func checkReferences(ids []string, targetFormID string, lookup SubmissionLookup) string {
	target, targetErr := uuid.Parse(targetFormID)
	checkTarget := targetFormID != "" && targetErr == nil

	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return formview.MsgInvalidReferenceID
		}
		var ref *formview.Submission
		found := false
		if lookup != nil {
			ref, found = lookup(id)
		}
		if !found || ref == nil {
			return formview.MsgReferenceNotFound
		}
		if checkTarget && ref.FormID != target {
			return formview.MsgReferenceWrongForm
		}
	}
	return ""
}

// ReferenceCandidates lists the distinct well-formed ids a payload refers to,
// so a caller can load them in one round trip before normalizing.
func ReferenceCandidates(schema []formview.FieldDefinition, data map[string]any) []uuid.UUID {
	ids := NewOrderedSet[uuid.UUID]()
	for _, field := range schema {
		if !field.IsRelation() || field.ID == "" {
			continue
		}
		raw := data[field.ID]
		if raw == nil && field.Key != "" {
			raw = data[field.Key]
		}
		for _, id := range parseReferenceIDs(normalizedIDs(normalizeReferenceValue(raw))) {
			ids.Add(id)
		}
	}
	return ids.Items()
}
