package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"gocalc/domain/expression"

	"github.com/xuri/excelize/v2"
)

// ImportedSet is one header-named column of numbers
type ImportedSet struct {
	Name   string
	Values []float64
}

// DataReader reads number columns from Excel or CSV files. The first row
// holds set names; every cell below is tokenized like calculator input, so
// "1+2" in a cell contributes two numbers and text is skipped.
type DataReader struct {
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewDataReader creates a reader for the file type implied by fileName
func NewDataReader(fileName string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(fileName)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{fileType: fileType}
}

// WithSheet reads a named sheet instead of the first one
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// Read returns one ImportedSet per non-empty column, left to right
func (r *DataReader) Read(src io.Reader) ([]ImportedSet, error) {
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV(src)
	default:
		rows, err = r.readExcel(src)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}

	sets := processRows(rows)
	log.Printf("[DataReader] Read %d sets from %d rows", len(sets), len(rows))
	return sets, nil
}

func (r *DataReader) readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func processRows(rows [][]string) []ImportedSet {
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	sets := make([]ImportedSet, 0, width)
	for col := 0; col < width; col++ {
		name := ""
		if col < len(header) {
			name = strings.TrimSpace(header[col])
		}
		if name == "" {
			name = fmt.Sprintf("Column %d", col+1)
		}

		var values []float64
		for _, row := range rows[1:] {
			if col < len(row) {
				values = append(values, expression.Parse(row[col])...)
			}
		}
		if len(values) == 0 {
			continue
		}
		sets = append(sets, ImportedSet{Name: name, Values: values})
	}
	return sets
}
