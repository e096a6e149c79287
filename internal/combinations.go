package internal

import (
	"github.com/lychee-technology/formview"
)

// combinationIterator walks the cartesian product of per-form candidate lists
// in odometer order: the first list varies slowest. An empty list contributes
// a single nil slot, which gives left-join semantics.
type combinationIterator struct {
	lists   [][]*formview.Submission
	indices []int
	started bool
	done    bool
}

func newCombinationIterator(lists [][]*formview.Submission) *combinationIterator {
	padded := make([][]*formview.Submission, len(lists))
	for i, l := range lists {
		if len(l) == 0 {
			padded[i] = []*formview.Submission{nil}
			continue
		}
		padded[i] = l
	}
	return &combinationIterator{
		lists:   padded,
		indices: make([]int, len(padded)),
	}
}

// Next returns the next combination, one entry per list, or false when the
// product is exhausted. The returned slice is freshly allocated.
func (it *combinationIterator) Next() ([]*formview.Submission, bool) {
	if it.done {
		return nil, false
	}
	if it.started && !it.advance() {
		it.done = true
		return nil, false
	}
	it.started = true

	combo := make([]*formview.Submission, len(it.lists))
	for i, l := range it.lists {
		combo[i] = l[it.indices[i]]
	}
	return combo, true
}

func (it *combinationIterator) advance() bool {
	for i := len(it.indices) - 1; i >= 0; i-- {
		it.indices[i]++
		if it.indices[i] < len(it.lists[i]) {
			return true
		}
		it.indices[i] = 0
	}
	return false
}
