package internal

import (
	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

// RelationDescriptor is one relation field of a child form that points at the anchor form.
type RelationDescriptor struct {
	ChildFormID uuid.UUID
	Field       formview.FieldDefinition
}

// RelationIndex stores anchor-to-child links discovered from relation fields.
// Children are grouped per child form and kept in discovery order.
type RelationIndex struct {
	anchor   uuid.UUID
	children map[uuid.UUID]map[uuid.UUID][]*formview.Submission
	edges    map[[2]uuid.UUID]struct{}
}

// relationsToAnchor lists the relation fields of a form whose target is anchor.
func relationsToAnchor(form *formview.Form, anchor uuid.UUID) []RelationDescriptor {
	if form == nil {
		return nil
	}
	var out []RelationDescriptor
	for _, field := range form.Schema {
		if !field.IsRelation() {
			continue
		}
		target, err := uuid.Parse(field.RelationTargetFormID())
		if err != nil || target != anchor {
			continue
		}
		out = append(out, RelationDescriptor{ChildFormID: form.ID, Field: field})
	}
	return out
}

// BuildRelationIndex scans every non-anchor submission for relation values
// that point at anchor submissions. An edge is recorded once per
// (anchor submission, child submission) pair no matter how many fields link them.
func BuildRelationIndex(anchor uuid.UUID, forms map[uuid.UUID]*formview.Form, submissions []*formview.Submission, byID map[uuid.UUID]*formview.Submission) *RelationIndex {
	idx := &RelationIndex{
		anchor:   anchor,
		children: make(map[uuid.UUID]map[uuid.UUID][]*formview.Submission),
		edges:    make(map[[2]uuid.UUID]struct{}),
	}

	descriptors := make(map[uuid.UUID][]RelationDescriptor, len(forms))
	for id, form := range forms {
		if id == anchor {
			continue
		}
		descriptors[id] = relationsToAnchor(form, anchor)
	}

	for _, child := range submissions {
		if child == nil || child.FormID == anchor {
			continue
		}
		for _, rel := range descriptors[child.FormID] {
			for _, parentID := range parseReferenceIDs(extractReferenceIDs(FieldValue(child.Data, rel.Field))) {
				parent, ok := byID[parentID]
				if !ok || parent.FormID != anchor {
					continue
				}
				idx.link(parentID, child)
			}
		}
	}
	return idx
}

func (idx *RelationIndex) link(parentID uuid.UUID, child *formview.Submission) {
	edge := [2]uuid.UUID{parentID, child.ID}
	if _, seen := idx.edges[edge]; seen {
		return
	}
	idx.edges[edge] = struct{}{}

	byForm, ok := idx.children[parentID]
	if !ok {
		byForm = make(map[uuid.UUID][]*formview.Submission)
		idx.children[parentID] = byForm
	}
	byForm[child.FormID] = append(byForm[child.FormID], child)
}

// Children returns the submissions of childForm linked to the anchor submission.
func (idx *RelationIndex) Children(parentID, childForm uuid.UUID) []*formview.Submission {
	return idx.children[parentID][childForm]
}

// EdgeCount returns the number of distinct anchor-child links.
func (idx *RelationIndex) EdgeCount() int {
	return len(idx.edges)
}
