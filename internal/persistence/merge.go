package persistence

import "sorpes/internal/state"

// Candidate is one provider's answer to a load.
type Candidate struct {
	Source   string
	Document *state.Document
}

// PriorityMerge picks the first candidate, in rank order, whose document
// holds at least one month. Empty and missing documents never win.
func PriorityMerge(candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if !c.Document.IsEmpty() {
			return c, true
		}
	}
	return Candidate{}, false
}
