// Package filter composes the tracker's independent bill predicates.
package filter

import (
	"fmt"
	"strings"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Kind names a toggleable filter group.
type Kind string

const (
	KindStatus    Kind = "status"
	KindPriority  Kind = "priority"
	KindCommittee Kind = "committee"
	KindType      Kind = "type"
)

// State is the user's filter selection.
type State struct {
	Search      string `json:"search"`
	Status      Set    `json:"status"`
	Priority    Set    `json:"priority"`
	Committee   Set    `json:"committee"`
	Type        string `json:"type"`
	TrackedOnly bool   `json:"trackedOnly"`
}

// NewState returns an empty selection with allocated sets.
func NewState() State {
	return State{Status: NewSet(), Priority: NewSet(), Committee: NewSet()}
}

// Normalize allocates any nil sets.
func (s State) Normalize() State {
	if s.Status == nil {
		s.Status = NewSet()
	}
	if s.Priority == nil {
		s.Priority = NewSet()
	}
	if s.Committee == nil {
		s.Committee = NewSet()
	}
	return s
}

// Clone deep-copies the selection.
func (s State) Clone() State {
	s = s.Normalize()
	s.Status = s.Status.Clone()
	s.Priority = s.Priority.Clone()
	s.Committee = s.Committee.Clone()
	return s
}

// Active reports whether any filter narrows the result.
func (s State) Active() bool {
	return strings.TrimSpace(s.Search) != "" || len(s.Status) > 0 || len(s.Priority) > 0 ||
		len(s.Committee) > 0 || s.Type != "" || s.TrackedOnly
}

// Toggle flips value in the group named by kind. The manual type filter is a
// single value: toggling the current value clears it.
func (s *State) Toggle(kind Kind, value string) (bool, error) {
	*s = s.Normalize()
	switch kind {
	case KindStatus:
		return s.Status.Toggle(value), nil
	case KindPriority:
		return s.Priority.Toggle(value), nil
	case KindCommittee:
		return s.Committee.Toggle(value), nil
	case KindType:
		value = strings.ToUpper(value)
		if s.Type == value {
			s.Type = ""
			return false, nil
		}
		s.Type = value
		return true, nil
	}
	return false, fmt.Errorf("unknown filter kind %q", kind)
}

// aliases expands a selected status into every raw status it should match,
// so bills carrying older coarse statuses still match fine-grained selections
// and vice versa.
var aliases = map[string][]string{
	"committee": {"committee", "opposite_committee"},
	"floor":     {"floor", "opposite_floor"},
	"passed":    {"passed", "passed_origin", "passed_legislature"},
	"governor":  {"governor", "passed_legislature"},
}

// ExpandStatus returns the raw statuses matched by the selected values.
func ExpandStatus(selected Set) Set {
	out := NewSet()
	for v := range selected {
		if expanded, ok := aliases[v]; ok {
			for _, e := range expanded {
				out[e] = struct{}{}
			}
			continue
		}
		out[v] = struct{}{}
	}
	return out
}

// Visible derives the ordered visible subset from the collection, the current
// navigation view, the filter selection and the tracked-id set. It has no
// side effects.
func Visible(coll *bill.Collection, view string, f State, tracked Set) []bill.Bill {
	n := coll.Len()
	if n == 0 {
		return []bill.Bill{}
	}

	viewType := ""
	if view != "" && !strings.EqualFold(view, bill.AllTypes) {
		viewType = strings.ToUpper(view)
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	statuses := ExpandStatus(f.Status)
	committees := make([]string, 0, len(f.Committee))
	for c := range f.Committee {
		committees = append(committees, strings.ToLower(c))
	}
	manualType := strings.ToUpper(f.Type)

	out := make([]bill.Bill, 0, n)
	for i := 0; i < n; i++ {
		b := coll.At(i)
		if viewType != "" && b.Type() != viewType {
			continue
		}
		if search != "" && !strings.Contains(coll.SearchText(i), search) {
			continue
		}
		if len(statuses) > 0 && !statuses.Has(b.Status) {
			continue
		}
		if len(f.Priority) > 0 && !f.Priority.Has(b.Priority) {
			continue
		}
		if len(committees) > 0 && !matchesAny(strings.ToLower(b.Committee), committees) {
			continue
		}
		if manualType != "" && b.Type() != manualType {
			continue
		}
		if f.TrackedOnly && !tracked.Has(b.ID) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesAny(committee string, selected []string) bool {
	for _, s := range selected {
		if strings.Contains(committee, s) {
			return true
		}
	}
	return false
}
