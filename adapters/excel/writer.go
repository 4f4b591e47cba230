package excel

import (
	"fmt"
	"io"
	"math"

	"gocalc/domain/stats"
	"gocalc/domain/workspace"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	numbersSheet = "Numbers"
)

var summaryHeaders = []string{"Set", "Color", "Count", "Total", "Mean", "Median", "Min", "Max", "Range", "Std Dev", "Mode", "Unique Mode"}

// WorkbookExporter writes a workspace as an xlsx workbook with a summary
// sheet and one number column per set
type WorkbookExporter struct{}

// NewWorkbookExporter creates an xlsx exporter
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// ContentType is the xlsx MIME type
func (e *WorkbookExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension is the file suffix
func (e *WorkbookExporter) Extension() string {
	return ".xlsx"
}

type column struct {
	name   string
	color  string
	values []float64
	stats  stats.Statistics
}

func columns(state *workspace.State) []column {
	cols := make([]column, 0, len(state.PinnedSets)+1)
	for _, p := range state.PinnedSets {
		cols = append(cols, column{name: p.Name, color: p.Color, values: p.Numbers.Values(), stats: p.Results})
	}
	if !state.Working.IsEmpty() {
		cols = append(cols, column{
			name:   workspace.WorkingSetLabel,
			values: state.Working.Values(),
			stats:  state.WorkingStats(),
		})
	}
	return cols
}

// Export writes the workbook to w
func (e *WorkbookExporter) Export(w io.Writer, state *workspace.State) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(numbersSheet); err != nil {
		return fmt.Errorf("failed to create numbers sheet: %w", err)
	}

	cols := columns(state)
	if err := writeSummary(f, cols, state.Totals()); err != nil {
		return err
	}
	if err := writeNumbers(f, cols); err != nil {
		return err
	}

	idx, err := f.GetSheetIndex(summarySheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, cols []column, totals stats.Statistics) error {
	if err := setRow(f, summarySheet, 1, toCells(summaryHeaders)); err != nil {
		return err
	}
	row := 2
	for _, c := range cols {
		if err := setRow(f, summarySheet, row, statsRow(c.name, c.color, c.stats)); err != nil {
			return err
		}
		row++
	}
	return setRow(f, summarySheet, row, statsRow("All sets", "", totals))
}

func writeNumbers(f *excelize.File, cols []column) error {
	header := []interface{}{"#"}
	longest := 0
	for _, c := range cols {
		header = append(header, c.name)
		if len(c.values) > longest {
			longest = len(c.values)
		}
	}
	if err := setRow(f, numbersSheet, 1, header); err != nil {
		return err
	}

	for i := 0; i < longest; i++ {
		cells := []interface{}{i + 1}
		for _, c := range cols {
			if i < len(c.values) {
				cells = append(cells, c.values[i])
			} else {
				cells = append(cells, nil)
			}
		}
		if err := setRow(f, numbersSheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func statsRow(name, color string, s stats.Statistics) []interface{} {
	return []interface{}{
		name, color, s.Count, s.Total, cell(s.Mean), cell(s.Median),
		s.Min, s.Max, s.Range, s.StdDev, s.Mode, s.UniqueMode,
	}
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	for i, v := range cells {
		if v == nil {
			continue
		}
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, name, err)
		}
	}
	return nil
}

// cell leaves NaN aggregates blank
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
