// Package importer turns VPCR spreadsheets into item upserts.
//
// A Pipeline validates each file's header (package sheet), converts every
// data row into canonical fields, and upserts the rows in small batches
// with a pause between batches so interactive writers can interleave.
// Row and file problems are collected in the ImportBatchResult; only
// cancellation and a concurrent run are reported as errors.
//
// # Date handling
//
// Date columns are rewritten from month-first to day-first text. The
// heuristic is lossy: when the first component is above 12 the value is
// taken to be day-first already and kept as is; otherwise it is read as
// month-first and swapped. 03/04/2024 therefore always becomes 04/03/2024
// even if the sheet meant 3 April.
package importer
