package internal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// stringifyValue renders a stored value the way comparisons and filters see it.
// nil renders as the empty string; structured values render as JSON.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case uuid.UUID:
		return val.String()
	case fmt.Stringer:
		return val.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// isEmptyValue treats nil, blank strings and empty collections as empty.
// Currency-shaped maps are judged by their amount, reference maps by their id.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		if amount, ok := val["amount"]; ok {
			return isEmptyValue(amount)
		}
		if id, ok := val["id"]; ok {
			return isEmptyValue(id)
		}
		return len(val) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

// isFalsy mirrors loose truthiness: zero numbers, false and empty values.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// coerceNumeric converts a value for ordered comparison. Currency maps are
// unwrapped to their amount and anything still structured counts as 0.
// ok is false only for strings that do not parse as a number.
func coerceNumeric(v any) (float64, bool) {
	if m, isMap := v.(map[string]any); isMap {
		if amount, hasAmount := m["amount"]; hasAmount {
			v = amount
		}
	}

	switch val := v.(type) {
	case nil:
		return 0, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		if val == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, true
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// FormatValue renders a stored value as display text. Lists are joined with
// ", " and everything else follows the comparison string form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if item != nil {
				parts = append(parts, stringifyValue(item))
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	}
	return stringifyValue(v)
}
