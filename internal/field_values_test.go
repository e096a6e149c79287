package internal

import (
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinctFieldValues(t *testing.T) {
	people := newForm("People")
	form := newForm("Orders",
		textField("tags", false),
		textField("price", false),
		referenceField("fld_buyer", "buyer", people.ID),
	)
	subs := []*formview.Submission{
		newSubmission(form, 1, map[string]any{"tags": []any{"red", "blue", nil}, "price": map[string]any{"amount": float64(10), "currency": "EUR"}}),
		newSubmission(form, 2, map[string]any{"tags": "green", "price": map[string]any{"amount": 2.5}}),
		newSubmission(form, 3, map[string]any{"tags": []any{"red"}, "price": map[string]any{"amount": nil}}),
		newSubmission(form, 4, map[string]any{"fld_buyer": map[string]any{"id": "b-1"}, "tags": true}),
		nil,
	}

	assert.Equal(t, []string{"blue", "green", "red", "true"}, DistinctFieldValues(form.Schema, subs, "tags"))
	assert.Equal(t, []string{"2.5", "EUR 10"}, DistinctFieldValues(form.Schema, subs, "price"))
	assert.Equal(t, []string{"b-1"}, DistinctFieldValues(form.Schema, subs, "buyer"))
	assert.Empty(t, DistinctFieldValues(form.Schema, subs, "unknown"))
}

func TestSubmissionOptionsFor(t *testing.T) {
	form := newForm("People", textField("name", true))
	zed := newSubmission(form, 1, map[string]any{"name": "zed"})
	amy := newSubmission(form, 2, map[string]any{"name": "Amy"})
	multi := newSubmission(form, 3, map[string]any{"name": []any{"Bo", "Cy"}})
	blank := newSubmission(form, 4, map[string]any{"name": "  "})
	missing := newSubmission(form, 5, map[string]any{})

	options := SubmissionOptionsFor([]*formview.Submission{zed, amy, multi, blank, missing}, "name")

	require.Len(t, options, 3)
	assert.Equal(t, formview.SubmissionOption{ID: amy.ID.String(), Label: "Amy"}, options[0])
	assert.Equal(t, "Bo, Cy", options[1].Label)
	assert.Equal(t, zed.ID.String(), options[2].ID)
}

func TestFilterSubmissions(t *testing.T) {
	people := newForm("People")
	form := newForm("Orders", textField("qty", false), referenceField("fld_buyer", "buyer", people.ID))
	a := newSubmission(form, 1, map[string]any{"qty": float64(3), "fld_buyer": "p-1"})
	b := newSubmission(form, 2, map[string]any{"qty": "3", "fld_buyer": "p-2"})
	c := newSubmission(form, 3, map[string]any{"qty": float64(4)})
	subs := []*formview.Submission{a, b, c}

	assert.Equal(t, []*formview.Submission{a, b}, FilterSubmissions(form.Schema, subs, formview.SubmissionFilter{Key: "qty", Value: "3"}))
	assert.Equal(t, []*formview.Submission{b}, FilterSubmissions(form.Schema, subs, formview.SubmissionFilter{Key: "buyer", Value: "p-2"}))
	assert.Equal(t, subs, FilterSubmissions(form.Schema, subs, formview.SubmissionFilter{Key: "qty"}))
}
