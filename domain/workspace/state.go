// Package workspace holds the calculator's application state and every user
// action on it. Nothing here touches storage; callers load and save State
// through a repository.
package workspace

import (
	"fmt"
	"strings"

	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/stats"
)

// WorkingSetLabel names the working set in charts and reports
const WorkingSetLabel = "Current Numbers"

// WorkingSetColor is the fixed chart color of the working set
const WorkingSetColor = "rgba(75, 192, 192, 1)"

// Direction moves a pinned set within the list
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection validates a move direction
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionLeft:
		return DirectionLeft, nil
	case DirectionRight:
		return DirectionRight, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidDirection, s)
}

// ViewPreferences are display toggles persisted with the state
type ViewPreferences struct {
	SortMode   numberset.SortMode `json:"sort_mode"`
	ChartType  chart.Type         `json:"chart_type"`
	Cumulative bool               `json:"cumulative"`
}

// DefaultViewPreferences shows input order on a serial line chart
func DefaultViewPreferences() ViewPreferences {
	return ViewPreferences{SortMode: numberset.SortOriginal, ChartType: chart.TypeLine}
}

// State is everything a workspace shows and persists
type State struct {
	LastExpression string          `json:"last_expression"`
	Working        numberset.Set   `json:"working"`
	PinnedSets     []PinnedSet     `json:"pinned_sets"`
	View           ViewPreferences `json:"view"`
}

// NewState returns an empty state
func NewState() *State {
	return &State{PinnedSets: []PinnedSet{}, View: DefaultViewPreferences()}
}

// WorkingStats computes statistics for the working set
func (s *State) WorkingStats() stats.Statistics {
	return s.Working.Stats()
}

// SetExpression replaces the input and reparses the working set. Blank
// input clears both.
func (s *State) SetExpression(expr string) {
	if strings.TrimSpace(expr) == "" {
		s.LastExpression = ""
		s.Working = numberset.Set{}
		return
	}
	s.LastExpression = expr
	s.Working = numberset.FromExpression(expr)
}

// WorkingView returns the working set in the current display order
func (s *State) WorkingView() []numberset.Entry {
	return s.Working.Sorted(s.View.SortMode)
}

// RemoveWorkingNumber removes the number displayed at index. The expression
// is rewritten from the remaining numbers and identities are renumbered, so
// the state matches what a reload produces.
func (s *State) RemoveWorkingNumber(displayIndex int) error {
	next, err := s.Working.RemoveAt(s.View.SortMode, displayIndex)
	if err != nil {
		return err
	}
	next = next.Renumber()
	s.Working = next
	s.LastExpression = next.Expression()
	return nil
}

// CycleSortMode advances the working set display order
func (s *State) CycleSortMode() numberset.SortMode {
	s.View.SortMode = s.View.SortMode.Next()
	return s.View.SortMode
}

// SetChartType switches between line and bar charts
func (s *State) SetChartType(t chart.Type) error {
	parsed, err := chart.ParseType(string(t))
	if err != nil {
		return err
	}
	s.View.ChartType = parsed
	return nil
}

// ToggleCumulative flips between serial and cumulative chart data
func (s *State) ToggleCumulative() bool {
	s.View.Cumulative = !s.View.Cumulative
	return s.View.Cumulative
}

// Pin moves the working set into a new pinned set and clears the input
func (s *State) Pin(color ColorFunc) (PinnedSet, error) {
	if s.Working.IsEmpty() {
		return PinnedSet{}, core.ErrNothingToPin
	}
	if color == nil {
		color = RandomColor
	}

	p := NewPinnedSet(fmt.Sprintf("Pinned Set %d", len(s.PinnedSets)+1), color(), s.Working)
	s.PinnedSets = append(s.PinnedSets, p)
	s.LastExpression = ""
	s.Working = numberset.Set{}
	return p, nil
}

// PinValues adds a pinned set built from values without touching the
// working set. A blank name falls back to the default numbering.
func (s *State) PinValues(name string, values []float64, color ColorFunc) (PinnedSet, error) {
	numbers := numberset.FromValues(values)
	if numbers.IsEmpty() {
		return PinnedSet{}, core.ErrNothingToPin
	}
	if color == nil {
		color = RandomColor
	}
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Pinned Set %d", len(s.PinnedSets)+1)
	}

	p := NewPinnedSet(name, color(), numbers)
	s.PinnedSets = append(s.PinnedSets, p)
	return p, nil
}

// Pinned looks up a pinned set by ID
func (s *State) Pinned(id core.PinnedSetID) (*PinnedSet, int, error) {
	for i := range s.PinnedSets {
		if s.PinnedSets[i].ID == id {
			return &s.PinnedSets[i], i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s", core.ErrPinnedSetNotFound, id)
}

// RenamePinned sets a pinned set's label. Any string is accepted.
func (s *State) RenamePinned(id core.PinnedSetID, name string) error {
	p, _, err := s.Pinned(id)
	if err != nil {
		return err
	}
	p.Name = name
	return nil
}

// RecolorPinned assigns a freshly generated color
func (s *State) RecolorPinned(id core.PinnedSetID, color ColorFunc) (string, error) {
	if color == nil {
		color = RandomColor
	}
	p, _, err := s.Pinned(id)
	if err != nil {
		return "", err
	}
	p.Color = color()
	return p.Color, nil
}

// SetPinnedColor assigns an explicit #rrggbb color
func (s *State) SetPinnedColor(id core.PinnedSetID, color string) error {
	normalized, err := NormalizeColor(color)
	if err != nil {
		return err
	}
	p, _, err := s.Pinned(id)
	if err != nil {
		return err
	}
	p.Color = normalized
	return nil
}

// MovePinned swaps a pinned set with its neighbour. Left means towards the
// end of the list and right towards the start; moving past either end is a
// no-op.
func (s *State) MovePinned(id core.PinnedSetID, dir Direction) error {
	_, i, err := s.Pinned(id)
	if err != nil {
		return err
	}

	var j int
	switch dir {
	case DirectionLeft:
		j = i + 1
	case DirectionRight:
		j = i - 1
	default:
		return fmt.Errorf("%w: %q", core.ErrInvalidDirection, dir)
	}
	if j < 0 || j >= len(s.PinnedSets) {
		return nil
	}
	s.PinnedSets[i], s.PinnedSets[j] = s.PinnedSets[j], s.PinnedSets[i]
	return nil
}

// EditPinnedNumbers reparses a pinned set's numbers. An expression without
// numbers leaves the set unchanged.
func (s *State) EditPinnedNumbers(id core.PinnedSetID, expr string) error {
	p, _, err := s.Pinned(id)
	if err != nil {
		return err
	}
	numbers := numberset.FromExpression(expr)
	if numbers.IsEmpty() {
		return core.ErrEmptyExpression
	}
	p.SetNumbers(numbers)
	return nil
}

// RemovePinnedNumber removes one entry of a pinned set by identity
func (s *State) RemovePinnedNumber(id core.PinnedSetID, entryID int) error {
	p, _, err := s.Pinned(id)
	if err != nil {
		return err
	}
	next, err := p.Numbers.Remove(entryID)
	if err != nil {
		return err
	}
	p.SetNumbers(next)
	return nil
}

// DeletePinned removes a pinned set. The action is destructive, so callers
// must pass confirmed.
func (s *State) DeletePinned(id core.PinnedSetID, confirmed bool) error {
	_, i, err := s.Pinned(id)
	if err != nil {
		return err
	}
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	s.PinnedSets = append(s.PinnedSets[:i], s.PinnedSets[i+1:]...)
	return nil
}

// Totals computes statistics over the working set and every pinned set
// combined.
func (s *State) Totals() stats.Statistics {
	all := s.Working.Values()
	for _, p := range s.PinnedSets {
		all = append(all, p.Numbers.Values()...)
	}
	return stats.Compute(all)
}

// Chart lays out every pinned set followed by the working set
func (s *State) Chart() chart.Data {
	inputs := make([]chart.Input, 0, len(s.PinnedSets)+1)
	for _, p := range s.PinnedSets {
		inputs = append(inputs, chart.Input{Label: p.Name, Color: p.Color, Values: p.Numbers.Values()})
	}
	inputs = append(inputs, chart.Input{Label: WorkingSetLabel, Color: WorkingSetColor, Values: s.Working.Values()})
	return chart.Build(s.View.ChartType, s.View.Cumulative, inputs...)
}

// Normalize repairs a state read from storage: results are recomputed,
// missing identities and colors are filled in, view preferences fall back to
// defaults. It returns how many pinned sets were given a new identity or
// color, since those must be saved back to stay stable across loads.
func (s *State) Normalize() (repaired int) {
	if s.PinnedSets == nil {
		s.PinnedSets = []PinnedSet{}
	}
	for i := range s.PinnedSets {
		p := &s.PinnedSets[i]
		fixed := false
		if p.ID.String() == "" {
			p.ID = core.NewPinnedSetID()
			fixed = true
		}
		if c, err := NormalizeColor(p.Color); err != nil {
			p.Color = RandomColor()
			fixed = true
		} else {
			p.Color = c
		}
		if fixed {
			repaired++
		}
		p.Recompute()
	}
	if mode, err := numberset.ParseSortMode(string(s.View.SortMode)); err == nil {
		s.View.SortMode = mode
	} else {
		s.View.SortMode = numberset.SortOriginal
	}
	if ct, err := chart.ParseType(string(s.View.ChartType)); err == nil {
		s.View.ChartType = ct
	} else {
		s.View.ChartType = chart.TypeLine
	}
	if strings.TrimSpace(s.LastExpression) == "" {
		s.LastExpression = ""
		s.Working = numberset.Set{}
	} else {
		s.Working = numberset.FromExpression(s.LastExpression)
	}
	return repaired
}
