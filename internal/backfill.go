package internal

import (
	"github.com/lychee-technology/formview"
)

// backfillRelationKeys moves relation values still stored under a field's key
// onto its id. Fields whose id entry already holds a value are left alone.
// It returns the rewritten data and whether anything changed. Reference
// targets are not checked.
func backfillRelationKeys(schema []formview.FieldDefinition, data map[string]any) (map[string]any, bool) {
	out := cloneData(data)
	changed := false
	for _, field := range schema {
		if !field.IsRelation() || field.ID == "" || field.Key == "" || field.ID == field.Key {
			continue
		}
		if out[field.ID] != nil {
			continue
		}
		raw, ok := out[field.Key]
		if !ok {
			continue
		}
		delete(out, field.Key)
		changed = true
		if normalized := normalizeReferenceValue(raw); normalized != nil {
			out[field.ID] = normalized
		}
	}
	return out, changed
}

// keyMigrationOutcome classifies one submission during a key rename.
type keyMigrationOutcome int

const (
	keyMigrationSkipped keyMigrationOutcome = iota
	keyMigrationMoved
	keyMigrationCleaned
)

// migrateRenamedKey moves data[oldKey] to data[canonicalKey]. When the
// canonical entry is already set only the stale oldKey entry is dropped.
func migrateRenamedKey(data map[string]any, oldKey, canonicalKey string) (map[string]any, keyMigrationOutcome) {
	out := cloneData(data)
	if out[canonicalKey] != nil {
		if _, stale := out[oldKey]; stale && oldKey != canonicalKey {
			delete(out, oldKey)
			return out, keyMigrationCleaned
		}
		return out, keyMigrationSkipped
	}
	raw, ok := out[oldKey]
	if !ok {
		return out, keyMigrationSkipped
	}
	delete(out, oldKey)
	if normalized := normalizeReferenceValue(raw); normalized != nil {
		out[canonicalKey] = normalized
	}
	return out, keyMigrationMoved
}
