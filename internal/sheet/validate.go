package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions the reader cannot
// open.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

var supported = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// ValidationResult is the outcome of checking one file's header row.
type ValidationResult struct {
	Path         string   `json:"path" yaml:"path"`
	HeaderOK     bool     `json:"header_ok" yaml:"header_ok"`
	Errors       []string `json:"errors" yaml:"errors"`
	HeaderValues []string `json:"header_values" yaml:"header_values"`
}

// Err returns the validation errors joined into one error, or nil.
func (r ValidationResult) Err() error {
	if r.HeaderOK {
		return nil
	}
	return fmt.Errorf("%s: %s", filepath.Base(r.Path), strings.Join(r.Errors, "; "))
}

// Option configures Validate and ReadRows.
type Option func(*options)

type options struct {
	sheet    string
	dateCols map[int]bool
}

// WithSheet selects a worksheet by name. The default is the first sheet.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

// WithDateColumns marks 0-based column indexes as dates for ReadRows.
// Numeric cells in those columns are returned as yyyy-mm-dd (with a time
// suffix when the serial has one) instead of their display format.
func WithDateColumns(cols ...int) Option {
	return func(o *options) {
		if o.dateCols == nil {
			o.dateCols = make(map[int]bool, len(cols))
		}
		for _, c := range cols {
			o.dateCols[c] = true
		}
	}
}

// CheckExtension reports ErrUnsupportedFormat for anything but .xlsx/.xlsm.
func CheckExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if supported[ext] {
		return nil
	}
	switch ext {
	case ".xls":
		return fmt.Errorf("%w: %s is a legacy binary .xls workbook; save it as .xlsx", ErrUnsupportedFormat, filepath.Base(path))
	case ".xlsb":
		return fmt.Errorf("%w: %s is a binary .xlsb workbook; save it as .xlsx", ErrUnsupportedFormat, filepath.Base(path))
	case "":
		return fmt.Errorf("%w: %s has no file extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return fmt.Errorf("%w: %q (expected .xlsx or .xlsm)", ErrUnsupportedFormat, ext)
}

// Validate reads the header row of path and compares it with expected.
// It never returns an error: every problem, including an unreadable file,
// is reported in the result.
//
// Three checks run against the trimmed header cells: the first cell, the
// last expected column, and the full column order. HeaderOK is true iff
// none of them produced an error.
func Validate(path string, expected []string, opts ...Option) ValidationResult {
	res := ValidationResult{Path: path, Errors: []string{}, HeaderValues: []string{}}

	if err := CheckExtension(path); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	header, err := readHeader(path, len(expected), opts...)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.HeaderValues = header
	res.Errors = compareHeader(header, expected)
	res.HeaderOK = len(res.Errors) == 0
	return res
}

func compareHeader(header, expected []string) []string {
	errs := []string{}
	if len(expected) == 0 {
		return errs
	}

	if header[0] != expected[0] {
		errs = append(errs, fmt.Sprintf("first column is %q, expected %q", header[0], expected[0]))
	}

	last := len(expected) - 1
	if header[last] != expected[last] {
		errs = append(errs, fmt.Sprintf("column %d (%s) is %q, expected %q",
			last+1, columnName(last), header[last], expected[last]))
	}

	var mismatched []string
	for i := range expected {
		if header[i] != expected[i] {
			mismatched = append(mismatched, fmt.Sprintf("%s=%q", columnName(i), header[i]))
		}
	}
	if len(mismatched) > 0 {
		errs = append(errs, fmt.Sprintf("header does not match the expected column order at %d position(s): %s",
			len(mismatched), strings.Join(mismatched, ", ")))
	}
	return errs
}

// readHeader returns the first row's trimmed cells, padded or cut to width.
func readHeader(path string, width int, opts ...Option) ([]string, error) {
	f, sheetName, err := open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	defer rows.Close()

	var cells []string
	if rows.Next() {
		cells, err = rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read header row: %w", err)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	return fitRow(cells, width), nil
}

// fitRow trims every cell and pads with "" or truncates to width.
func fitRow(cells []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(cells); i++ {
		out[i] = strings.TrimSpace(cells[i])
	}
	return out
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func open(path string, opts ...Option) (*excelize.File, string, error) {
	o := buildOptions(opts)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}

	sheetName := o.sheet
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, "", fmt.Errorf("open workbook %s: no worksheets", filepath.Base(path))
		}
		sheetName = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		f.Close()
		return nil, "", fmt.Errorf("open workbook %s: no worksheet named %q", filepath.Base(path), sheetName)
	}
	return f, sheetName, nil
}

// columnName converts a 0-based index to a spreadsheet column letter.
func columnName(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return fmt.Sprintf("#%d", i+1)
	}
	return name
}
