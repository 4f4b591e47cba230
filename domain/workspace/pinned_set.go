package workspace

import (
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/stats"
)

// PinnedSet is a named, colored snapshot of numbers kept for comparison.
// Results always equal stats.Compute over Numbers; use SetNumbers to edit.
type PinnedSet struct {
	ID        core.PinnedSetID `json:"id"`
	Name      string           `json:"name"`
	Color     string           `json:"color"`
	Numbers   numberset.Set    `json:"numbers"`
	Results   stats.Statistics `json:"results"`
	CreatedAt core.Timestamp   `json:"created_at"`
}

// NewPinnedSet snapshots numbers under name and color
func NewPinnedSet(name, color string, numbers numberset.Set) PinnedSet {
	p := PinnedSet{
		ID:        core.NewPinnedSetID(),
		Name:      name,
		Color:     color,
		CreatedAt: core.Now(),
	}
	p.SetNumbers(numbers)
	return p
}

// SetNumbers replaces the numbers and recomputes results
func (p *PinnedSet) SetNumbers(numbers numberset.Set) {
	p.Numbers = numbers.Clone()
	p.Results = p.Numbers.Stats()
}

// Recompute refreshes results from the current numbers
func (p *PinnedSet) Recompute() {
	p.Results = p.Numbers.Stats()
}
