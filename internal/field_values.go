package internal

import (
	"sort"
	"strings"

	"github.com/lychee-technology/formview"
)

// DistinctFieldValues collects the sorted distinct string values a field takes
// across submissions. List items count individually, currency values render
// as "CUR amount" and reference maps contribute their id.
func DistinctFieldValues(schema []formview.FieldDefinition, submissions []*formview.Submission, fieldKey string) []string {
	key := StorageKeyFor(schema, fieldKey)
	set := NewOrderedSet[string]()

	for _, sub := range submissions {
		if sub == nil || sub.Data == nil {
			continue
		}
		val := sub.Data[key]
		switch v := val.(type) {
		case nil:
			continue
		case []any:
			for _, item := range v {
				if item != nil {
					set.Add(stringifyValue(item))
				}
			}
		case []string:
			for _, item := range v {
				set.Add(item)
			}
		case map[string]any:
			if amount, ok := v["amount"]; ok {
				if amount == nil {
					continue
				}
				if currency, hasCur := v["currency"]; hasCur && currency != nil {
					set.Add(stringifyValue(currency) + " " + stringifyValue(amount))
					continue
				}
				set.Add(stringifyValue(amount))
				continue
			}
			if id, ok := v["id"]; ok {
				set.Add(stringifyValue(id))
				continue
			}
			set.Add(stringifyValue(v))
		default:
			set.Add(stringifyValue(v))
		}
	}

	values := set.Items()
	sort.Strings(values)
	return values
}

// SubmissionOptionsFor builds picker options labelled by data[fieldKey].
// Blank labels are skipped and the result is sorted case-insensitively.
func SubmissionOptionsFor(submissions []*formview.Submission, fieldKey string) []formview.SubmissionOption {
	options := make([]formview.SubmissionOption, 0, len(submissions))
	for _, sub := range submissions {
		if sub == nil || len(sub.Data) == 0 {
			continue
		}
		raw, ok := sub.Data[fieldKey]
		if !ok || raw == nil {
			continue
		}

		var label string
		switch v := raw.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if item != nil {
					parts = append(parts, stringifyValue(item))
				}
			}
			label = strings.Join(parts, ", ")
		case []string:
			label = strings.Join(v, ", ")
		default:
			label = stringifyValue(v)
		}

		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		options = append(options, formview.SubmissionOption{ID: sub.ID.String(), Label: label})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return strings.ToLower(options[i].Label) < strings.ToLower(options[j].Label)
	})
	return options
}

// FilterSubmissions keeps submissions whose stored value under the filter key
// stringifies to the filter value. Relation field keys are mapped to their id.
func FilterSubmissions(schema []formview.FieldDefinition, submissions []*formview.Submission, filter formview.SubmissionFilter) []*formview.Submission {
	if filter.Key == "" || filter.Value == "" {
		return submissions
	}
	key := StorageKeyFor(schema, filter.Key)
	out := make([]*formview.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub == nil {
			continue
		}
		if stringifyValue(sub.Data[key]) == filter.Value {
			out = append(out, sub)
		}
	}
	return out
}
