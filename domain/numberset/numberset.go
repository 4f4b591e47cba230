// Package numberset holds parsed number sequences whose entries keep a stable
// identity, so removal from a re-sorted display never has to guess which of
// several equal values was meant.
package numberset

import (
	"encoding/json"
	"fmt"
	"sort"

	"gocalc/domain/core"
	"gocalc/domain/expression"
	"gocalc/domain/stats"
)

// Entry is one number together with its origin index
type Entry struct {
	ID    int     `json:"id"`
	Value float64 `json:"value"`
}

// Set is an ordered number sequence. The zero value is an empty set.
type Set struct {
	entries []Entry
	nextID  int
}

// FromExpression parses expr and numbers entries by position
func FromExpression(expr string) Set {
	return FromValues(expression.Parse(expr))
}

// FromValues builds a set from values in input order
func FromValues(values []float64) Set {
	s := Set{entries: make([]Entry, len(values)), nextID: len(values)}
	for i, v := range values {
		s.entries[i] = Entry{ID: i, Value: v}
	}
	return s
}

// Len returns the number of entries
func (s Set) Len() int { return len(s.entries) }

// IsEmpty reports whether the set has no entries
func (s Set) IsEmpty() bool { return len(s.entries) == 0 }

// Values returns the values in input order
func (s Set) Values() []float64 {
	values := make([]float64, len(s.entries))
	for i, e := range s.entries {
		values[i] = e.Value
	}
	return values
}

// Entries returns a copy of the entries in input order
func (s Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Stats computes statistics over the current values
func (s Set) Stats() stats.Statistics {
	return stats.Compute(s.Values())
}

// Expression renders the set back into a parseable expression
func (s Set) Expression() string {
	return expression.Format(s.Values())
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	return Set{entries: s.Entries(), nextID: s.nextID}
}

// Sorted returns the entries in display order for mode. The sort is stable,
// so equal values keep their input order.
func (s Set) Sorted(mode SortMode) []Entry {
	view := s.Entries()
	switch mode {
	case SortAscending:
		sort.SliceStable(view, func(i, j int) bool { return view[i].Value < view[j].Value })
	case SortDescending:
		sort.SliceStable(view, func(i, j int) bool { return view[i].Value > view[j].Value })
	}
	return view
}

// Remove deletes the entry with the given identity
func (s Set) Remove(id int) (Set, error) {
	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		out := Set{entries: make([]Entry, 0, len(s.entries)-1), nextID: s.nextID}
		out.entries = append(out.entries, s.entries[:i]...)
		out.entries = append(out.entries, s.entries[i+1:]...)
		return out, nil
	}
	return s, fmt.Errorf("%w: id %d", core.ErrEntryNotFound, id)
}

// RemoveAt deletes the entry shown at displayIndex in the mode view
func (s Set) RemoveAt(mode SortMode, displayIndex int) (Set, error) {
	view := s.Sorted(mode)
	if displayIndex < 0 || displayIndex >= len(view) {
		return s, fmt.Errorf("%w: %d not in [0,%d)", core.ErrIndexOutOfRange, displayIndex, len(view))
	}
	return s.Remove(view[displayIndex].ID)
}

// Renumber reassigns identities 0..n-1 in input order
func (s Set) Renumber() Set {
	return FromValues(s.Values())
}

// MarshalJSON stores only the values; identities are positional on load.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON reads a plain array of numbers
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = FromValues(values)
	return nil
}
