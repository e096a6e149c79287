package internal

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// MaterializeResult carries the rows of a view plus how they were produced.
type MaterializeResult struct {
	Rows []formview.Row
	// Anchored is false when no anchor form could be resolved and rows were
	// emitted one per submission.
	Anchored bool
	// Truncated is set when the row cap dropped output.
	Truncated bool
	MaxRows   int
	// RequestedMaxRows is the view's own maxRows. It differs from MaxRows
	// when the cap was defaulted or clamped to the configured ceiling.
	RequestedMaxRows int
	Edges            int
}

// Clamped reports whether the view asked for more rows than it was allowed.
func (r MaterializeResult) Clamped() bool {
	return r.RequestedMaxRows > r.MaxRows
}

// resolvedColumn is a view column with its form id parsed once.
type resolvedColumn struct {
	formview.ViewColumn
	formID uuid.UUID
	valid  bool
}

// MaterializeView joins submissions around the view's anchor form.
func MaterializeView(cfg formview.ViewConfig, forms []*formview.Form, submissions []*formview.Submission) []formview.Row {
	return Materialize(cfg, forms, submissions).Rows
}

// Materialize builds view rows. Forms and submissions outside the forms named
// by the columns are ignored. The output never exceeds the row cap, which is
// cfg.MaxRows or formview.DefaultMaxRows when unset.
func Materialize(cfg formview.ViewConfig, forms []*formview.Form, submissions []*formview.Submission) MaterializeResult {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = formview.DefaultMaxRows
	}
	result := MaterializeResult{MaxRows: maxRows, RequestedMaxRows: cfg.MaxRows, Rows: []formview.Row{}}

	columns := make([]resolvedColumn, 0, len(cfg.Columns))
	involved := make(map[uuid.UUID]struct{})
	for _, c := range cfg.Columns {
		rc := resolvedColumn{ViewColumn: c}
		if id, err := uuid.Parse(c.FormID); err == nil {
			rc.formID, rc.valid = id, true
			involved[id] = struct{}{}
		}
		columns = append(columns, rc)
	}
	if len(involved) == 0 {
		return result
	}

	formMap := make(map[uuid.UUID]*formview.Form, len(involved))
	for _, f := range forms {
		if f == nil {
			continue
		}
		if _, ok := involved[f.ID]; ok {
			formMap[f.ID] = f
		}
	}

	scoped := make([]*formview.Submission, 0, len(submissions))
	byID := make(map[uuid.UUID]*formview.Submission, len(submissions))
	for _, s := range submissions {
		if s == nil {
			continue
		}
		if _, ok := involved[s.FormID]; !ok {
			continue
		}
		scoped = append(scoped, s)
		byID[s.ID] = s
	}

	anchor, ok := resolveAnchor(cfg)
	if !ok {
		result.Rows, result.Truncated = flatRows(columns, formMap, scoped, maxRows)
		logTruncation(result, len(scoped))
		return result
	}
	result.Anchored = true

	index := BuildRelationIndex(anchor, formMap, scoped, byID)
	result.Edges = index.EdgeCount()

	childForms := childFormsInColumns(columns, anchor)
	idOrder := sortedFormIDs(childForms)

	rows := make([]formview.Row, 0)
	anchors := 0
	for _, base := range scoped {
		if base.FormID != anchor {
			continue
		}
		anchors++
		if len(rows) >= maxRows {
			result.Truncated = true
			break
		}

		lists := make([][]*formview.Submission, len(childForms))
		for i, fid := range childForms {
			lists[i] = index.Children(base.ID, fid)
		}

		it := newCombinationIterator(lists)
		for {
			combo, more := it.Next()
			if !more {
				break
			}
			if len(rows) >= maxRows {
				result.Truncated = true
				break
			}
			picked := make(map[uuid.UUID]*formview.Submission, len(childForms))
			for i, fid := range childForms {
				picked[fid] = combo[i]
			}
			rows = append(rows, anchoredRow(base, anchor, picked, idOrder, columns, formMap))
		}
	}

	result.Rows = rows
	logTruncation(result, anchors)
	return result
}

// resolveAnchor picks baseFormId, or the first column's form when unset.
func resolveAnchor(cfg formview.ViewConfig) (uuid.UUID, bool) {
	raw := cfg.BaseFormID
	if raw == "" && len(cfg.Columns) > 0 {
		raw = cfg.Columns[0].FormID
	}
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// childFormsInColumns returns the non-anchor forms bound to columns, in
// column order of first appearance.
func childFormsInColumns(columns []resolvedColumn, anchor uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, c := range columns {
		if !c.valid || c.formID == anchor {
			continue
		}
		if _, dup := seen[c.formID]; dup {
			continue
		}
		seen[c.formID] = struct{}{}
		out = append(out, c.formID)
	}
	return out
}

func sortedFormIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// rowID joins the anchor id with one slot per child form, sorted by form id.
func rowID(base uuid.UUID, picked map[uuid.UUID]*formview.Submission, idOrder []uuid.UUID) string {
	parts := make([]string, 0, len(idOrder)+1)
	parts = append(parts, base.String())
	for _, fid := range idOrder {
		if sub := picked[fid]; sub != nil {
			parts = append(parts, sub.ID.String())
			continue
		}
		parts = append(parts, "-")
	}
	return strings.Join(parts, ":")
}

func anchoredRow(base *formview.Submission, anchor uuid.UUID, picked map[uuid.UUID]*formview.Submission, idOrder []uuid.UUID, columns []resolvedColumn, formMap map[uuid.UUID]*formview.Form) formview.Row {
	row := formview.Row{
		ID:        rowID(base.ID, picked, idOrder),
		CreatedAt: base.CreatedAt,
		FormID:    anchor.String(),
		Values:    make(map[string]any, len(columns)),
	}
	for _, c := range columns {
		if c.ID == "" {
			continue
		}
		switch {
		case !c.valid:
			row.Values[c.ID] = nil
		case c.formID == anchor:
			row.Values[c.ID] = columnValue(base, formMap[anchor], c.FieldKey)
		default:
			row.Values[c.ID] = columnValue(picked[c.formID], formMap[c.formID], c.FieldKey)
		}
	}
	return row
}

// flatRows emits one row per submission with no joining.
func flatRows(columns []resolvedColumn, formMap map[uuid.UUID]*formview.Form, submissions []*formview.Submission, maxRows int) ([]formview.Row, bool) {
	rows := make([]formview.Row, 0, min(len(submissions), maxRows))
	for _, sub := range submissions {
		if len(rows) >= maxRows {
			return rows, true
		}
		row := formview.Row{
			ID:        sub.ID.String(),
			CreatedAt: sub.CreatedAt,
			FormID:    sub.FormID.String(),
			Values:    make(map[string]any, len(columns)),
		}
		for _, c := range columns {
			if c.ID == "" {
				continue
			}
			if c.valid && c.formID == sub.FormID {
				row.Values[c.ID] = columnValue(sub, formMap[sub.FormID], c.FieldKey)
				continue
			}
			row.Values[c.ID] = nil
		}
		rows = append(rows, row)
	}
	return rows, false
}

// columnValue reads a column's field from a submission, nil when the
// submission is missing.
func columnValue(sub *formview.Submission, form *formview.Form, fieldKey string) any {
	if sub == nil {
		return nil
	}
	var schema []formview.FieldDefinition
	if form != nil {
		schema = form.Schema
	}
	return valueForFieldKey(sub.Data, schema, fieldKey)
}

func logTruncation(result MaterializeResult, candidates int) {
	if !result.Truncated {
		return
	}
	zap.S().Debugw("view rows truncated at cap",
		"maxRows", result.MaxRows,
		"anchored", result.Anchored,
		"candidates", candidates,
	)
}
