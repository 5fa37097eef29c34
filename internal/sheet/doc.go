// Package sheet reads VPCR spreadsheets.
//
// Validate is the cheap pre-import check: it reads only the header row and
// compares it with the expected layout. ReadRows returns the data rows of a
// file that passed validation. Only the Office Open XML containers (.xlsx,
// .xlsm) are supported; the legacy binary .xls format and .xlsb are
// rejected before the file is opened.
package sheet
