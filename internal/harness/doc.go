// Package harness runs VPCR scenarios against a real engine and store.
//
// A scenario is a YAML file that declares spreadsheet fixtures, a list of
// engine operations and assertions on the resulting records:
//
//	name: reimport_updates_title
//	description: "A second import only logs the field that changed"
//	workbooks:
//	  first.xlsx:
//	    rows:
//	      - {"VPCR Project ID": ITM-1, Title: Alpha}
//	setup:
//	  - action: import
//	    files: [first.xlsx]
//	flow:
//	  - action: set
//	    item: ITM-1
//	    fields: {Title: Beta}
//	    expect: {changed: 1}
//	assertions:
//	  - type: item
//	    item: ITM-1
//	    fields: {Title: Beta}
//	  - type: log_count
//	    item: ITM-1
//	    field: title
//	    count: 2
//
// Supported actions are set, delete, import, checklist_add and
// checklist_toggle. Supported assertions are item, absent, log_count and
// checklist.
//
// Each run uses a fresh database in a temporary directory, a deterministic
// clock and no pauses between import batches. The Result trace interleaves
// one "step" event per flow step with the change log entries that step
// wrote, so it can be compared against a golden file with AssertGolden.
// Timestamps and import run ids are left out of the trace.
package harness
