package internal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

// toUUID converts the shapes drivers hand back for uuid columns.
func toUUID(obj any) (uuid.UUID, bool) {
	switch v := obj.(type) {
	case uuid.UUID:
		return v, true
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return *v, true
	case [16]byte:
		return uuid.UUID(v), true
	case string:
		data, err := uuid.Parse(v)
		return data, err == nil
	case *string:
		if v == nil {
			return uuid.Nil, false
		}
		data, err := uuid.Parse(*v)
		return data, err == nil
	case []byte:
		// 16 raw bytes or the textual form
		if len(v) == 16 {
			data, err := uuid.FromBytes(v)
			return data, err == nil
		}
		data, err := uuid.Parse(string(v))
		return data, err == nil
	case fmt.Stringer:
		data, err := uuid.Parse(v.String())
		return data, err == nil
	default:
		return uuid.Nil, false
	}
}

// mustUUIDColumn converts a scanned id column or reports which column failed.
func mustUUIDColumn(column string, raw any) (uuid.UUID, error) {
	id, ok := toUUID(raw)
	if !ok {
		return uuid.Nil, fmt.Errorf("column %s: cannot convert %T to uuid", column, raw)
	}
	return id, nil
}
