package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const fitnessCSV = "Date,Weight,Coach\n" +
	"2026-01-05,82.4,Maya\n" +
	"2026-01-12,81.9,Maya\n" +
	"2026-01-19,81.1,Jordan\n"

func TestParseCSV(t *testing.T) {
	tab, err := Parse([]byte(fitnessCSV), "progress.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tab.Columns) != 3 || tab.Columns[1] != "Weight" {
		t.Fatalf("columns wrong: %v", tab.Columns)
	}
	if tab.TotalRows != 3 {
		t.Fatalf("expected 3 rows, got %d", tab.TotalRows)
	}
	if tab.ColumnTypes["Weight"] != "number" {
		t.Fatalf("Weight not inferred numeric: %v", tab.ColumnTypes)
	}
	if tab.ColumnTypes["Coach"] != "text" {
		t.Fatalf("Coach not inferred text: %v", tab.ColumnTypes)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"Exercise", "Reps"})
	f.SetSheetRow(sheet, "A2", &[]any{"Squat", 12})
	f.SetSheetRow(sheet, "A3", &[]any{"Deadlift", 8})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	tab, err := Parse(buf.Bytes(), "plan.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tab.TotalRows != 2 || tab.Columns[0] != "Exercise" {
		t.Fatalf("workbook parsed wrong: %+v", tab)
	}
	if tab.ColumnTypes["Reps"] != "number" {
		t.Fatalf("Reps not numeric: %v", tab.ColumnTypes)
	}
}

func TestParseUnsupported(t *testing.T) {
	if _, err := Parse([]byte("x"), "file.pdf"); err == nil {
		t.Fatalf("unsupported extension accepted")
	}
}

func TestParseRaggedRowsPadded(t *testing.T) {
	tab, err := Parse([]byte("a,b,c\n1,2\n"), "r.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tab.Rows[0]) != 3 || tab.Rows[0][2] != "" {
		t.Fatalf("short row not padded: %v", tab.Rows[0])
	}
}

func TestPreviewTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("N,V\n")
	for i := 0; i < 15; i++ {
		b.WriteString("row,1\n")
	}
	out := Preview([]byte(b.String()), "long.csv", 10)
	if !strings.Contains(out, "Dimensions: 15 rows x 2 columns") {
		t.Fatalf("dimensions missing:\n%s", out)
	}
	if !strings.Contains(out, "... and 5 more rows") {
		t.Fatalf("preview not truncated:\n%s", out)
	}
}

func TestVectorStoreTextCompleteSmallFile(t *testing.T) {
	out := VectorStoreText([]byte(fitnessCSV), "progress.csv", 0)
	if !strings.Contains(out, "Document: progress.csv") {
		t.Fatalf("header missing:\n%s", out)
	}
	if !strings.Contains(out, "[Complete dataset with 3 rows included]") {
		t.Fatalf("small file not complete:\n%s", out)
	}
	if !strings.Contains(out, "Numerical Analysis:") || !strings.Contains(out, "- Weight:") {
		t.Fatalf("numeric stats missing:\n%s", out)
	}
	if !strings.Contains(out, "most common: \"Maya\"") {
		t.Fatalf("text profile missing:\n%s", out)
	}
}

func TestVectorStoreTextSamplesLargeFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("Id,Value\n")
	for i := 0; i < 300; i++ {
		b.WriteString("x,1\n")
	}
	out := VectorStoreText([]byte(b.String()), "big.csv", 30)
	if !strings.Contains(out, "omitted") {
		t.Fatalf("large file not sampled:\n%s", out)
	}
	if !strings.Contains(out, "Sample of 30 rows from total 300 rows") {
		t.Fatalf("sample marker missing:\n%s", out)
	}
}

func TestSmartRowLimit(t *testing.T) {
	cases := []struct{ rows, want int }{
		{50, 50}, {100, 100}, {600, 500}, {5000, 1000}, {50000, 2000},
	}
	for _, c := range cases {
		if got := smartRowLimit(c.rows); got != c.want {
			t.Fatalf("smartRowLimit(%d) = %d, want %d", c.rows, got, c.want)
		}
	}
}

func TestIsSheetFile(t *testing.T) {
	for _, name := range []string{"a.xlsx", "b.XLS", "c.csv"} {
		if !IsSheetFile(name) {
			t.Fatalf("%s not recognized", name)
		}
	}
	if IsSheetFile("a.png") || IsSheetFile("noext") {
		t.Fatalf("non-sheet file recognized")
	}
}
