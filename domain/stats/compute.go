package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// Compute derives Statistics from values. It is total: the empty sequence
// produces the degenerate record described on Statistics. values is never
// modified.
func Compute(values []float64) Statistics {
	result := Statistics{
		Version: Version,
		Count:   len(values),
		Mean:    math.NaN(),
		Median:  math.NaN(),
		Modes:   []float64{},
	}
	if len(values) == 0 {
		return result
	}

	data := mstats.Float64Data(values)

	// Errors from the library only signal empty input, handled above.
	result.Total, _ = mstats.Sum(data)
	result.Mean = result.Total / float64(len(values))
	result.Median, _ = mstats.Median(data)
	result.Min, _ = mstats.Min(data)
	result.Max, _ = mstats.Max(data)
	result.Range = result.Max - result.Min
	result.StdDev, _ = mstats.StandardDeviationPopulation(data)

	result.Modes = Modes(values)
	result.Mode = result.Modes[0]
	result.UniqueMode = len(result.Modes) == 1

	return result
}

// Modes returns every value that attains the highest occurrence frequency,
// ascending. When all values occur equally often every distinct value is
// modal. Returns nil for empty input.
func Modes(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	freq := make(map[float64]int, len(values))
	best := 0
	for _, v := range values {
		if v == 0 {
			v = 0 // fold -0 into 0
		}
		freq[v]++
		if freq[v] > best {
			best = freq[v]
		}
	}

	modes := make([]float64, 0, len(freq))
	for v, n := range freq {
		if n == best {
			modes = append(modes, v)
		}
	}
	sort.Float64s(modes)
	return modes
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
