package schema

import (
	"fmt"
	"regexp"
)

// Kind tells the import edge how to normalize a field's raw cell value.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

// Field describes one item attribute.
type Field struct {
	Name   string
	Column string
	Header string
	Kind   Kind
}

// Imported reports whether the field has a spreadsheet column.
func (f Field) Imported() bool {
	return f.Header != ""
}

// Identifier field names.
const (
	IDName   = "ID"
	IDColumn = "item_id"
	IDHeader = "VPCR Project ID"
)

// HeaderWidth is the number of columns in the import spreadsheet layout.
const HeaderWidth = 20

// Fields lists every item field. Imported fields come first, in spreadsheet
// column order; the identifier is always first.
var Fields = []Field{
	{Name: IDName, Column: IDColumn, Header: IDHeader},
	{Name: "Initiated Date", Column: "initiated_date", Header: "Initiated Date", Kind: KindDate},
	{Name: "Title", Column: "title", Header: "Title"},
	{Name: "Status", Column: "status", Header: "Status"},
	{Name: "Category", Column: "category", Header: "Category"},
	{Name: "Supplier", Column: "supplier", Header: "Supplier"},
	{Name: "PNs", Column: "pns", Header: "Affected PNs", Kind: KindList},
	{Name: "Plants Affected", Column: "plants_affected", Header: "Plants Affected", Kind: KindList},
	{Name: "Requestor", Column: "requestor", Header: "Requestor"},
	{Name: "Sourcing Manager", Column: "sourcing_manager", Header: "Sourcing Manager"},
	{Name: "SQIE", Column: "sqie", Header: "SQIE"},
	{Name: "Continuity", Column: "continuity", Header: "Continuity"},
	{Name: "Description", Column: "description", Header: "Description"},
	{Name: "RFQ", Column: "rfq", Header: "RFQ"},
	{Name: "DRA", Column: "dra", Header: "DRA"},
	{Name: "DQR", Column: "dqr", Header: "DQR"},
	{Name: "LOI", Column: "loi", Header: "LOI"},
	{Name: "Closed Date", Column: "closed_date", Header: "Closed Date", Kind: KindDate},
	{Name: "Comments", Column: "comments", Header: "Comments"},
	{Name: "Last Update", Column: "last_update", Header: "Last Updated Date", Kind: KindDate},

	{Name: "Tooling", Column: "tooling"},
	{Name: "Drawing", Column: "drawing"},
	{Name: "PO Alfa", Column: "po_alfa"},
	{Name: "SR", Column: "sr"},
	{Name: "Deviation", Column: "deviation"},
	{Name: "PO Beta", Column: "po_beta"},
	{Name: "PPAP", Column: "ppap"},
	{Name: "GBPA", Column: "gbpa"},
	{Name: "EDI", Column: "edi"},
	{Name: "SCR", Column: "scr"},
	{Name: "Log", Column: "log"},
}

var (
	byName   = make(map[string]Field, len(Fields))
	byColumn = make(map[string]Field, len(Fields))
	byHeader = make(map[string]Field, len(Fields))
)

func init() {
	for _, f := range Fields {
		byName[f.Name] = f
		byColumn[f.Column] = f
		if f.Imported() {
			byHeader[f.Header] = f
		}
	}
}

// Lookup resolves a canonical name or a persisted column name.
func Lookup(name string) (Field, bool) {
	if f, ok := byName[name]; ok {
		return f, true
	}
	f, ok := byColumn[name]
	return f, ok
}

// ByColumn resolves a persisted column name only.
func ByColumn(column string) (Field, bool) {
	f, ok := byColumn[column]
	return f, ok
}

// ByHeader resolves a spreadsheet header title.
func ByHeader(header string) (Field, bool) {
	f, ok := byHeader[header]
	return f, ok
}

// ExpectedHeader returns the ordered spreadsheet header. The returned slice
// is a fresh copy.
func ExpectedHeader() []string {
	header := make([]string, 0, HeaderWidth)
	for _, f := range Fields {
		if f.Imported() {
			header = append(header, f.Header)
		}
	}
	return header
}

// DataFields returns every field except the identifier, in table order.
func DataFields() []Field {
	out := make([]Field, 0, len(Fields)-1)
	for _, f := range Fields {
		if f.Column == IDColumn {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Columns returns the persisted data column names (identifier excluded).
func Columns() []string {
	fields := DataFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return cols
}

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Check verifies that Fields is a consistent mapping: no duplicate names,
// columns or headers, a usable identifier, SQL-safe column names and a
// header of exactly HeaderWidth columns starting with the identifier.
func Check() error {
	return check(Fields)
}

func check(fields []Field) error {
	names := make(map[string]bool, len(fields))
	cols := make(map[string]bool, len(fields))
	headers := make(map[string]bool, len(fields))
	width := 0

	for i, f := range fields {
		if f.Name == "" || f.Column == "" {
			return fmt.Errorf("field %d: name and column are required", i)
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		if cols[f.Column] {
			return fmt.Errorf("duplicate column %q", f.Column)
		}
		if _, clash := byNameIn(fields, f.Column); clash && f.Column != f.Name {
			return fmt.Errorf("column %q collides with a field name", f.Column)
		}
		if !columnPattern.MatchString(f.Column) {
			return fmt.Errorf("column %q is not a valid identifier", f.Column)
		}
		names[f.Name] = true
		cols[f.Column] = true

		if !f.Imported() {
			continue
		}
		if headers[f.Header] {
			return fmt.Errorf("duplicate header %q", f.Header)
		}
		headers[f.Header] = true
		width++
	}

	if len(fields) == 0 || fields[0].Column != IDColumn || fields[0].Header != IDHeader {
		return fmt.Errorf("first field must be the identifier %q", IDHeader)
	}
	if width != HeaderWidth {
		return fmt.Errorf("header has %d columns, want %d", width, HeaderWidth)
	}
	return nil
}

func byNameIn(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
