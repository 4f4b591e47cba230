// Package chart lays number sets out as chart series over a shared index axis.
package chart

import (
	"fmt"
	"strconv"

	"gocalc/domain/core"

	"gonum.org/v1/gonum/floats"
)

// Type is the chart rendering style
type Type string

const (
	TypeLine Type = "line"
	TypeBar  Type = "bar"
)

// ParseType validates a chart type; the empty string means line
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeLine:
		return TypeLine, nil
	case TypeBar:
		return TypeBar, nil
	}
	return TypeLine, fmt.Errorf("%w: %q", core.ErrInvalidChartType, s)
}

// Input is one set to plot
type Input struct {
	Label  string
	Color  string
	Values []float64
}

// Series is one plotted line or bar group. A nil point is a gap.
type Series struct {
	Label string     `json:"label"`
	Color string     `json:"color"`
	Data  []*float64 `json:"data"`
}

// Data is the complete chart payload
type Data struct {
	Type       Type     `json:"type"`
	Cumulative bool     `json:"cumulative"`
	Labels     []string `json:"labels"`
	Series     []Series `json:"series"`
}

// Build pads every input to the longest one and, when cumulative is set,
// replaces values with running totals. Padding stays a gap in both modes.
func Build(chartType Type, cumulative bool, inputs ...Input) Data {
	width := 0
	for _, in := range inputs {
		if len(in.Values) > width {
			width = len(in.Values)
		}
	}

	labels := make([]string, width)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}

	series := make([]Series, 0, len(inputs))
	for _, in := range inputs {
		values := make([]float64, len(in.Values))
		if cumulative {
			floats.CumSum(values, in.Values)
		} else {
			copy(values, in.Values)
		}

		points := make([]*float64, width)
		for i := range values {
			v := values[i]
			points[i] = &v
		}
		series = append(series, Series{Label: in.Label, Color: in.Color, Data: points})
	}

	if chartType == "" {
		chartType = TypeLine
	}
	return Data{Type: chartType, Cumulative: cumulative, Labels: labels, Series: series}
}
