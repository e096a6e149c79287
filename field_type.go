package formview

import "strings"

// FieldKind is the closed set of field types the engine understands.
type FieldKind uint8

const (
	FieldKindUnknown FieldKind = iota
	FieldKindText
	FieldKindTextarea
	FieldKindNumber
	FieldKindCurrency
	FieldKindSelect
	FieldKindMultiselect
	FieldKindCheckbox
	FieldKindRadio
	FieldKindDate
	FieldKindTime
	FieldKindFile
	FieldKindRating
	FieldKindSlider
	FieldKindToggle
	FieldKindReference
	FieldKindCalculated
	FieldKindConditional
)

var fieldKindNames = map[FieldKind]string{
	FieldKindText:        "text",
	FieldKindTextarea:    "textarea",
	FieldKindNumber:      "number",
	FieldKindCurrency:    "currency",
	FieldKindSelect:      "select",
	FieldKindMultiselect: "multiselect",
	FieldKindCheckbox:    "checkbox",
	FieldKindRadio:       "radio",
	FieldKindDate:        "date",
	FieldKindTime:        "time",
	FieldKindFile:        "file",
	FieldKindRating:      "rating",
	FieldKindSlider:      "slider",
	FieldKindToggle:      "toggle",
	FieldKindReference:   "reference",
	FieldKindCalculated:  "calculated",
	FieldKindConditional: "conditional",
}

var fieldKindsByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(fieldKindNames))
	for k, name := range fieldKindNames {
		m[name] = k
	}
	return m
}()

// ParseFieldKind maps a schema type string to its kind. Unrecognized strings
// yield FieldKindUnknown.
func ParseFieldKind(s string) FieldKind {
	if k, ok := fieldKindsByName[s]; ok {
		return k
	}
	return FieldKindUnknown
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// FieldType is the decoded "type" of a field definition. Raw keeps the string
// exactly as authored so unknown types survive a decode/encode cycle.
type FieldType struct {
	Kind FieldKind
	Raw  string
}

// NewFieldType builds a FieldType from the authored type string.
func NewFieldType(raw string) FieldType {
	return FieldType{Kind: ParseFieldKind(raw), Raw: raw}
}

// FieldTypeOf returns the canonical FieldType for a known kind.
func FieldTypeOf(kind FieldKind) FieldType {
	return FieldType{Kind: kind, Raw: kind.String()}
}

func (t FieldType) String() string {
	if t.Raw != "" {
		return t.Raw
	}
	if t.Kind == FieldKindUnknown {
		return ""
	}
	return t.Kind.String()
}

// IsKnown reports whether the type maps to one of the FieldKind constants.
func (t FieldType) IsKnown() bool {
	return t.Kind != FieldKindUnknown
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(text []byte) error {
	*t = NewFieldType(strings.TrimSpace(string(text)))
	return nil
}
