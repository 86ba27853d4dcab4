package sheet

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Preview renders a short human-readable summary: dimensions, columns, the
// first maxRows data rows and the inferred column types.
func Preview(data []byte, filename string, maxRows int) string {
	t, err := Parse(data, filename)
	if err != nil {
		return fmt.Sprintf("Error processing spreadsheet file: %v", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Spreadsheet File: %s\n", filename)
	fmt.Fprintf(&b, "Dimensions: %d rows x %d columns\n", t.TotalRows, len(t.Columns))
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(t.Columns, ", "))

	b.WriteString("Sample Data:\n")
	for i, row := range t.Rows {
		if i == maxRows {
			break
		}
		fmt.Fprintf(&b, "Row %d: %s\n", i+1, joinCells(row, 50))
	}
	if t.TotalRows > maxRows {
		fmt.Fprintf(&b, "... and %d more rows\n", t.TotalRows-maxRows)
	}
	b.WriteString("\nColumn Types:\n")
	for _, col := range t.Columns {
		fmt.Fprintf(&b, "  %s: %s\n", col, t.ColumnTypes[col])
	}
	return b.String()
}

// VectorStoreText renders index-ready text for the whole table. maxRows 0
// picks a limit from the table size: small tables ship complete, larger ones
// ship a sample spread across beginning, middle and end.
func VectorStoreText(data []byte, filename string, maxRows int) string {
	t, err := Parse(data, filename)
	if err != nil {
		return fmt.Sprintf("Error processing spreadsheet file %s: %v", filename, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", filename)
	b.WriteString("Type: Spreadsheet\n")
	fmt.Fprintf(&b, "Dimensions: %d rows, %d columns\n\n", t.TotalRows, len(t.Columns))

	b.WriteString("Columns and Data Types:\n")
	for _, col := range t.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", col, t.ColumnTypes[col])
	}
	b.WriteString("\n")

	limit := maxRows
	if limit <= 0 {
		limit = smartRowLimit(t.TotalRows)
	}
	if limit > t.TotalRows {
		limit = t.TotalRows
	}

	b.WriteString("Data Content:\n")
	b.WriteString(strings.Join(t.Columns, " | "))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 50))
	b.WriteString("\n")

	if limit >= t.TotalRows {
		for i, row := range t.Rows {
			fmt.Fprintf(&b, "Row %d: %s\n", i+1, joinCells(row, 0))
		}
		fmt.Fprintf(&b, "[Complete dataset with %d rows included]\n", t.TotalRows)
	} else {
		writeSampledRows(&b, t, limit)
	}

	writeColumnStats(&b, t)
	return b.String()
}

// smartRowLimit scales the included row count with the table size.
func smartRowLimit(totalRows int) int {
	switch {
	case totalRows <= 100:
		return totalRows
	case totalRows <= 1000:
		return 500
	case totalRows <= 10000:
		return 1000
	default:
		return 2000
	}
}

// writeSampledRows emits first, middle and last chunks so the index sees the
// shape of the whole dataset.
func writeSampledRows(b *strings.Builder, t *Table, limit int) {
	first := limit / 3
	middleStart := (t.TotalRows - first) / 2
	last := limit - 2*first

	for i := 0; i < first; i++ {
		fmt.Fprintf(b, "Row %d: %s\n", i+1, joinCells(t.Rows[i], 0))
	}
	if middleStart > first {
		fmt.Fprintf(b, "[... rows %d to %d omitted ...]\n", first+1, middleStart)
	}
	for i := middleStart; i < middleStart+first && i < t.TotalRows; i++ {
		fmt.Fprintf(b, "Row %d: %s\n", i+1, joinCells(t.Rows[i], 0))
	}
	if middleStart+first < t.TotalRows-last {
		fmt.Fprintf(b, "[... rows %d to %d omitted ...]\n", middleStart+first+1, t.TotalRows-last)
	}
	for i := t.TotalRows - last; i < t.TotalRows; i++ {
		fmt.Fprintf(b, "Row %d: %s\n", i+1, joinCells(t.Rows[i], 0))
	}
	fmt.Fprintf(b, "[Sample of %d rows from total %d rows - distributed across beginning, middle, and end]\n", limit, t.TotalRows)
}

// writeColumnStats appends min/max/mean/std for numeric columns and
// cardinality for text columns.
func writeColumnStats(b *strings.Builder, t *Table) {
	var numeric, text []string
	for _, col := range t.Columns {
		if t.ColumnTypes[col] == "number" {
			numeric = append(numeric, col)
		} else {
			text = append(text, col)
		}
	}
	if len(numeric) > 0 {
		b.WriteString("\nNumerical Analysis:\n")
		for _, col := range numeric {
			vals := numericValues(t, col)
			if len(vals) == 0 {
				continue
			}
			min, max, mean, std := describe(vals)
			fmt.Fprintf(b, "- %s: min=%g, max=%g, mean=%.2f, std=%.2f, count=%d\n", col, min, max, mean, std, len(vals))
		}
	}
	if len(text) > 0 {
		b.WriteString("\nText Column Analysis:\n")
		for _, col := range text {
			unique, mostCommon := textProfile(t, col)
			fmt.Fprintf(b, "- %s: %d unique values, most common: %q\n", col, len(unique), mostCommon)
			if len(unique) > 0 && len(unique) <= 20 {
				fmt.Fprintf(b, "  Unique values: %s\n", strings.Join(unique, ", "))
			}
		}
	}
}

func columnIndex(t *Table, col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func numericValues(t *Table, col string) []float64 {
	idx := columnIndex(t, col)
	if idx < 0 {
		return nil
	}
	var vals []float64
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			vals = append(vals, f)
		}
	}
	return vals
}

func describe(vals []float64) (min, max, mean, std float64) {
	min, max = vals[0], vals[0]
	sum := 0.0
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean = sum / float64(len(vals))
	if len(vals) > 1 {
		var ss float64
		for _, v := range vals {
			ss += (v - mean) * (v - mean)
		}
		std = math.Sqrt(ss / float64(len(vals)-1))
	}
	return min, max, mean, std
}

func textProfile(t *Table, col string) (unique []string, mostCommon string) {
	idx := columnIndex(t, col)
	if idx < 0 {
		return nil, ""
	}
	counts := map[string]int{}
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		counts[v]++
	}
	best := 0
	for v, n := range counts {
		unique = append(unique, v)
		if n > best {
			best = n
			mostCommon = v
		}
	}
	sort.Strings(unique)
	return unique, mostCommon
}

func joinCells(row []string, truncate int) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		if truncate > 0 && len(cell) > truncate {
			cell = cell[:truncate] + "..."
		}
		parts[i] = cell
	}
	return strings.Join(parts, " | ")
}
