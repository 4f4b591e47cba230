package kvstore

import (
	"encoding/json"
	"time"

	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/workspace"

	"github.com/tidwall/gjson"
)

// Storage keys. The first two match the browser widget's localStorage keys
// so exported data can be imported unchanged.
const (
	KeyLastExpression  = "lastExpression"
	KeyPinnedSets      = "pinnedSets"
	KeyViewPreferences = "viewPreferences"
)

type pinnedSetRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Numbers   []float64 `json:"numbers"`
	CreatedAt time.Time `json:"created_at"`
}

// EncodePinnedSets serialises pinned sets in order. Results are not stored;
// they are recomputed on load.
func EncodePinnedSets(sets []workspace.PinnedSet) (string, error) {
	records := make([]pinnedSetRecord, len(sets))
	for i, p := range sets {
		records[i] = pinnedSetRecord{
			ID:        p.ID.String(),
			Name:      p.Name,
			Color:     p.Color,
			Numbers:   p.Numbers.Values(),
			CreatedAt: p.CreatedAt.Time(),
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePinnedSets reads stored pinned sets leniently: a value that is not a
// JSON array yields no sets, and records without a numeric "numbers" array
// are skipped. skipped counts dropped records.
func DecodePinnedSets(raw string) (sets []workspace.PinnedSet, skipped int) {
	sets = []workspace.PinnedSet{}
	if !gjson.Valid(raw) {
		return sets, 0
	}
	root := gjson.Parse(raw)
	if !root.IsArray() {
		return sets, 0
	}

	for _, rec := range root.Array() {
		p, ok := decodePinnedSet(rec)
		if !ok {
			skipped++
			continue
		}
		sets = append(sets, p)
	}
	return sets, skipped
}

func decodePinnedSet(rec gjson.Result) (workspace.PinnedSet, bool) {
	if !rec.IsObject() {
		return workspace.PinnedSet{}, false
	}
	numbersField := rec.Get("numbers")
	if !numbersField.IsArray() {
		return workspace.PinnedSet{}, false
	}

	var values []float64
	for _, n := range numbersField.Array() {
		if n.Type != gjson.Number {
			return workspace.PinnedSet{}, false
		}
		values = append(values, n.Float())
	}

	p := workspace.PinnedSet{
		ID:    core.PinnedSetID(rec.Get("id").String()),
		Name:  rec.Get("name").String(),
		Color: rec.Get("color").String(),
	}
	if ts := rec.Get("created_at"); ts.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
			p.CreatedAt = core.NewTimestamp(t)
		}
	}
	p.SetNumbers(numberset.FromValues(values))
	return p, true
}

// EncodeViewPreferences serialises display toggles
func EncodeViewPreferences(view workspace.ViewPreferences) (string, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeViewPreferences reads display toggles, falling back to defaults per field
func DecodeViewPreferences(raw string) workspace.ViewPreferences {
	view := workspace.DefaultViewPreferences()
	if !gjson.Valid(raw) {
		return view
	}
	root := gjson.Parse(raw)
	if mode, err := numberset.ParseSortMode(root.Get("sort_mode").String()); err == nil {
		view.SortMode = mode
	}
	if ct, err := chart.ParseType(root.Get("chart_type").String()); err == nil {
		view.ChartType = ct
	}
	if c := root.Get("cumulative"); c.IsBool() {
		view.Cumulative = c.Bool()
	}
	return view
}
