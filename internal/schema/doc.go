// Package schema is the single source of truth for VPCR item fields.
//
// Every field has three names:
//   - Name: the canonical in-memory name used by callers ("Plants Affected")
//   - Column: the persisted column in the items table ("plants_affected")
//   - Header: the spreadsheet column title, empty for fields that are only
//     edited by hand
//
// The expected spreadsheet header, the items table DDL and the import column
// mapping are all derived from Fields, so they cannot drift apart. Check
// verifies the table is internally consistent.
package schema
