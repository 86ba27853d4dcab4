// Package sheet parses spreadsheet files (xlsx, xls, csv) into a tabular form
// and renders previews and index-ready text from them.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupported = errors.New("sheet: unsupported file type")

// Table is the parsed content of one spreadsheet: the first sheet of a
// workbook, or the whole file for CSV. The first row is taken as the header.
type Table struct {
	Columns     []string
	Rows        [][]string
	TotalRows   int
	ColumnTypes map[string]string // "number" or "text"
}

// Parse reads the spreadsheet bytes. Workbooks use excelize and only the
// first sheet; CSV goes through encoding/csv with lazy quoting.
func Parse(data []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return parseWorkbook(data)
	case ".csv":
		return parseCSV(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
}

// IsSheetFile reports whether the filename has a spreadsheet extension.
func IsSheetFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

func parseWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("sheet: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows: %w", err)
	}
	return tableFromRows(rows), nil
}

func parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sheet: read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return tableFromRows(rows), nil
}

func tableFromRows(raw [][]string) *Table {
	t := &Table{ColumnTypes: map[string]string{}}
	if len(raw) == 0 {
		return t
	}
	t.Columns = raw[0]
	for _, row := range raw[1:] {
		// ragged rows padded to header width
		padded := make([]string, len(t.Columns))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	t.TotalRows = len(t.Rows)
	for i, col := range t.Columns {
		t.ColumnTypes[col] = inferColumnType(t.Rows, i)
	}
	return t
}

// inferColumnType samples up to 100 non-empty cells; a column is numeric only
// when every sampled cell parses as a float.
func inferColumnType(rows [][]string, col int) string {
	seen := 0
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err != nil {
			return "text"
		}
		seen++
		if seen == 100 {
			break
		}
	}
	if seen == 0 {
		return "text"
	}
	return "number"
}
