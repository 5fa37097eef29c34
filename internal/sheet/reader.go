package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Row is one data row. Number is the 1-based sheet row (the header is row
// 1, so the first data row is 2). Cells are trimmed and padded to the
// requested width.
type Row struct {
	Number int
	Cells  []string
}

// Blank reports whether every cell is empty.
func (r Row) Blank() bool {
	for _, c := range r.Cells {
		if c != "" {
			return false
		}
	}
	return true
}

// ReadRows returns the data rows of path (row 2 onward), each cut or padded
// to width cells. Callers should Validate first; ReadRows only checks the
// extension.
//
// Cells are read with their display format applied, except in columns
// named by WithDateColumns, where date serials are converted to ISO text.
func ReadRows(path string, width int, opts ...Option) ([]Row, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}

	f, sheetName, err := open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dates := buildOptions(opts).dateCols
	date1904 := uses1904(f)

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	defer rows.Close()

	out := []Row{}
	number := 0
	for rows.Next() {
		number++
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", number, err)
		}
		if number == 1 {
			continue
		}
		for i := range cells {
			if dates[i] && strings.TrimSpace(cells[i]) != "" {
				cells[i] = dateCell(f, sheetName, i, number, cells[i], date1904)
			}
		}
		out = append(out, Row{Number: number, Cells: fitRow(cells, width)})
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	// Trailing blank rows are formatting leftovers, not data.
	for len(out) > 0 && out[len(out)-1].Blank() {
		out = out[:len(out)-1]
	}
	return out, nil
}

// dateCell returns the cell at 0-based col and 1-based row as ISO text when
// it stores a date serial or a typed date, and formatted otherwise.
func dateCell(f *excelize.File, sheetName string, col, row int, formatted string, date1904 bool) string {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return formatted
	}
	typ, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return formatted
	}
	raw, err := f.GetCellValue(sheetName, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return formatted
	}
	raw = strings.TrimSpace(raw)

	var t time.Time
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return formatted
		}
		if t, err = excelize.ExcelDateToTime(serial, date1904); err != nil {
			return formatted
		}
	case excelize.CellTypeDate:
		if t, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return formatted
		}
	default:
		return formatted
	}

	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}
