package internal

import (
	"strings"

	"github.com/lychee-technology/formview"
)

// IsFieldVisible evaluates the field's conditions against data. A show rule
// that is not met, or a hide rule that is met, hides the field. Fields
// without conditions are always visible.
func IsFieldVisible(data map[string]any, field formview.FieldDefinition, schema []formview.FieldDefinition) bool {
	for _, rule := range field.Conditions {
		met := conditionMet(rule, conditionValue(data, schema, rule.FieldKey))
		switch rule.Action {
		case formview.ActionShow:
			if !met {
				return false
			}
		case formview.ActionHide:
			if met {
				return false
			}
		}
	}
	return true
}

func conditionMet(rule formview.ConditionRule, value any) bool {
	switch rule.Operator {
	case formview.OperatorEquals:
		return valuesEqual(value, rule.Value)
	case formview.OperatorNotEquals:
		return !valuesEqual(value, rule.Value)
	case formview.OperatorContains:
		return strings.Contains(
			strings.ToLower(looseString(value)),
			strings.ToLower(looseString(rule.Value)),
		)
	case formview.OperatorGreaterThan, formview.OperatorLessThan:
		left, ok := coerceNumeric(value)
		if !ok {
			return false
		}
		right, ok := coerceNumeric(rule.Value)
		if !ok {
			return false
		}
		if rule.Operator == formview.OperatorGreaterThan {
			return left > right
		}
		return left < right
	case formview.OperatorIsEmpty:
		return isEmptyValue(value)
	case formview.OperatorIsNotEmpty:
		return !isEmptyValue(value)
	}
	return false
}

// valuesEqual compares rendered values. An absent value equals only another
// absent value, never "".
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return stringifyValue(a) == stringifyValue(b)
}

// looseString stringifies v, collapsing falsy values to "".
func looseString(v any) string {
	if isFalsy(v) {
		return ""
	}
	return stringifyValue(v)
}
