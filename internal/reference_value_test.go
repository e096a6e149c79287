package internal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeReferenceValue(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		expect any
	}{
		{"nil", nil, nil},
		{"trimmed string", "  abc ", "abc"},
		{"blank string", "   ", nil},
		{"number", float64(42), "42"},
		{"object with id", map[string]any{"id": " x "}, "x"},
		{"object without id", map[string]any{"label": "x"}, nil},
		{"object with nil id", map[string]any{"id": nil}, nil},
		{"list", []any{"a", map[string]any{"id": "b"}, " ", nil, "a"}, []string{"a", "b", "a"}},
		{"empty list", []any{}, nil},
		{"string list", []string{" a", ""}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, normalizeReferenceValue(tt.raw))
		})
	}
}

func TestExtractReferenceIDsFlattensAndDeduplicates(t *testing.T) {
	raw := []any{"a", []any{"b", map[string]any{"id": "a"}}, map[string]any{"id": nil}, "c"}
	assert.Equal(t, []string{"a", "b", "c"}, extractReferenceIDs(raw))
	assert.Empty(t, extractReferenceIDs(nil))
}

func TestParseReferenceIDs(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []uuid.UUID{id}, parseReferenceIDs([]string{"nope", id.String()}))
}
