package stats

import (
	"encoding/json"
	"math"
)

// Version identifies the shape of Statistics. Bump it when fields change.
const Version = 2

// Statistics summarises one number sequence. All fields are always present.
//
// Mean and Median are NaN for an empty sequence; Min, Max, Range, StdDev and
// Mode are 0. Callers must check Count before trusting Mean.
type Statistics struct {
	Version    int       `json:"version"`
	Count      int       `json:"count"`
	Total      float64   `json:"total"`
	Mean       float64   `json:"mean"`
	Median     float64   `json:"median"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Range      float64   `json:"range"`
	StdDev     float64   `json:"std_dev"`
	Mode       float64   `json:"mode"`
	Modes      []float64 `json:"modes"`
	UniqueMode bool      `json:"unique_mode"`
}

// IsEmpty reports whether the statistics describe an empty sequence
func (s Statistics) IsEmpty() bool {
	return s.Count == 0
}

type statisticsJSON struct {
	Version    int       `json:"version"`
	Count      int       `json:"count"`
	Total      float64   `json:"total"`
	Mean       *float64  `json:"mean"`
	Median     *float64  `json:"median"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Range      float64   `json:"range"`
	StdDev     float64   `json:"std_dev"`
	Mode       float64   `json:"mode"`
	Modes      []float64 `json:"modes"`
	UniqueMode bool      `json:"unique_mode"`
}

// MarshalJSON encodes NaN aggregates as null, which encoding/json otherwise rejects.
func (s Statistics) MarshalJSON() ([]byte, error) {
	modes := s.Modes
	if modes == nil {
		modes = []float64{}
	}
	return json.Marshal(statisticsJSON{
		Version:    s.Version,
		Count:      s.Count,
		Total:      s.Total,
		Mean:       finite(s.Mean),
		Median:     finite(s.Median),
		Min:        s.Min,
		Max:        s.Max,
		Range:      s.Range,
		StdDev:     s.StdDev,
		Mode:       s.Mode,
		Modes:      modes,
		UniqueMode: s.UniqueMode,
	})
}

// UnmarshalJSON restores null aggregates as NaN.
func (s *Statistics) UnmarshalJSON(data []byte) error {
	var raw statisticsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Statistics{
		Version:    raw.Version,
		Count:      raw.Count,
		Total:      raw.Total,
		Mean:       orNaN(raw.Mean),
		Median:     orNaN(raw.Median),
		Min:        raw.Min,
		Max:        raw.Max,
		Range:      raw.Range,
		StdDev:     raw.StdDev,
		Mode:       raw.Mode,
		Modes:      raw.Modes,
		UniqueMode: raw.UniqueMode,
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
