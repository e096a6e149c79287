package internal

import (
	"strings"

	"github.com/google/uuid"
)

// normalizeReferenceValue rewrites a raw relation value to its stored shape:
// nil, a single id string, or a non-empty list of id strings in input order.
func normalizeReferenceValue(raw any) any {
	switch val := raw.(type) {
	case nil:
		return nil
	case []any:
		ids := make([]string, 0, len(val))
		for _, item := range val {
			if id := referenceElementID(item); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return ids
	case []string:
		ids := make([]string, 0, len(val))
		for _, item := range val {
			if id := strings.TrimSpace(item); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return ids
	case map[string]any:
		id, ok := val["id"]
		if !ok || id == nil {
			return nil
		}
		if s := strings.TrimSpace(stringifyValue(id)); s != "" {
			return s
		}
		return nil
	}

	if s := strings.TrimSpace(stringifyValue(raw)); s != "" {
		return s
	}
	return nil
}

// referenceElementID extracts the id of one list element. A map contributes
// its id, anything else its string form.
func referenceElementID(item any) string {
	if m, ok := item.(map[string]any); ok {
		if id, has := m["id"]; has && id != nil {
			return strings.TrimSpace(stringifyValue(id))
		}
	}
	return strings.TrimSpace(stringifyValue(item))
}

// normalizedIDs lists the ids held by a normalized reference value.
func normalizedIDs(normalized any) []string {
	switch val := normalized.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	}
	return nil
}

// extractReferenceIDs collects submission ids from any reference-shaped value.
// Nested lists are flattened and duplicates dropped, keeping first occurrence.
func extractReferenceIDs(raw any) []string {
	ids := NewOrderedSet[string]()
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case nil:
			return
		case []any:
			for _, item := range val {
				walk(item)
			}
			return
		case []string:
			for _, item := range val {
				walk(item)
			}
			return
		case map[string]any:
			id, ok := val["id"]
			if !ok || id == nil {
				return
			}
			v = id
		}
		if s := strings.TrimSpace(stringifyValue(v)); s != "" {
			ids.Add(s)
		}
	}
	walk(raw)
	return ids.Items()
}

// parseReferenceIDs parses extracted ids, dropping those that are not UUIDs.
func parseReferenceIDs(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}
