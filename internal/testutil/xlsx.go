package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet excelize.NewFile creates.
const DefaultSheet = "Sheet1"

// WriteWorkbook writes rows to a new workbook at dir/name and returns its
// path. rows[0] is the header row. Cells are written as strings so that
// date-like text stays text.
func WriteWorkbook(t testing.TB, dir, name string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name for row %d: %v", i+1, err)
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &cells); err != nil {
			t.Fatalf("write row %d: %v", i+1, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
	return path
}

// DataRow builds a full-width data row from a map keyed by header title.
// Headers not in values are left blank.
func DataRow(header []string, values map[string]string) []string {
	row := make([]string, len(header))
	for i, h := range header {
		row[i] = values[h]
	}
	return row
}

// SetCell overwrites one cell of the workbook at path with a typed value.
// A non-zero numFmt applies that built-in number format, e.g. 14 for the
// short date format.
func SetCell(t testing.TB, path, cell string, value interface{}, numFmt int) {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook %s: %v", path, err)
	}
	defer f.Close()

	if err := f.SetCellValue(DefaultSheet, cell, value); err != nil {
		t.Fatalf("set %s: %v", cell, err)
	}
	if numFmt != 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			t.Fatalf("new style: %v", err)
		}
		if err := f.SetCellStyle(DefaultSheet, cell, cell, style); err != nil {
			t.Fatalf("style %s: %v", cell, err)
		}
	}
	if err := f.Save(); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
}
