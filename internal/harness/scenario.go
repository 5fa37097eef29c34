package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one engine conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workbooks are spreadsheet fixtures written before the run, keyed by
	// file name.
	Workbooks map[string]Workbook `yaml:"workbooks,omitempty"`

	// Setup establishes initial state. Every setup step must succeed and
	// setup steps are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the traced part of the scenario.
	Flow []Step `yaml:"flow"`

	// Assertions check the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Workbook is a spreadsheet fixture. Rows are keyed by header title; a nil
// Header means the expected VPCR header.
type Workbook struct {
	Header []string            `yaml:"header,omitempty"`
	Rows   []map[string]string `yaml:"rows"`
}

// Step is one engine operation.
type Step struct {
	// Action is one of set, delete, import, checklist_add, checklist_toggle.
	Action string `yaml:"action"`

	// Item is the target item id (set, delete, checklist_add).
	Item string `yaml:"item,omitempty"`

	// Fields are the values to set, keyed by field or column name.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Files are workbook names to import. Names not declared under
	// workbooks are passed through as paths that do not exist.
	Files []string `yaml:"files,omitempty"`

	// Description is the checklist entry text (checklist_add).
	Description string `yaml:"description,omitempty"`

	// Entry is the checklist entry id (checklist_toggle).
	Entry int64 `yaml:"entry,omitempty"`

	// Expect optionally checks the step outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step outcome. Unset fields are not checked.
type Expect struct {
	// Error is the expected error class: not_found, validation,
	// unknown_field or busy. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Created and Changed check a set step.
	Created *bool `yaml:"created,omitempty"`
	Changed *int  `yaml:"changed,omitempty"`

	// Outcome, Rows and RowErrors check an import step.
	Outcome   string `yaml:"outcome,omitempty"`
	Rows      *int   `yaml:"rows,omitempty"`
	RowErrors *int   `yaml:"row_errors,omitempty"`
}

// Assertion checks the final state.
type Assertion struct {
	// Type is one of item, absent, log_count, checklist.
	Type string `yaml:"type"`

	// Item is the item id every assertion type targets.
	Item string `yaml:"item"`

	// Fields is a subset of expected values (item).
	Fields map[string]string `yaml:"fields,omitempty"`

	// Field is a change log field name, e.g. title or ITEM_CREATED
	// (log_count). Empty counts every entry for the item.
	Field string `yaml:"field,omitempty"`

	// Count is the expected number of change log entries (log_count).
	Count int `yaml:"count,omitempty"`

	// Total and Completed are the expected checklist counts (checklist).
	Total     int `yaml:"total,omitempty"`
	Completed int `yaml:"completed,omitempty"`
}

// Step actions.
const (
	ActionSet             = "set"
	ActionDelete          = "delete"
	ActionImport          = "import"
	ActionChecklistAdd    = "checklist_add"
	ActionChecklistToggle = "checklist_toggle"
)

// Assertion types.
const (
	AssertItem      = "item"
	AssertAbsent    = "absent"
	AssertLogCount  = "log_count"
	AssertChecklist = "checklist"
)

// Expected error classes.
const (
	ErrorNotFound     = "not_found"
	ErrorValidation   = "validation"
	ErrorUnknownField = "unknown_field"
	ErrorBusy         = "busy"
)

// LoadScenario reads and parses a scenario YAML file. Unknown keys are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for name := range s.Workbooks {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("workbook name %q must be a plain file name", name)
		}
	}
	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Action {
	case ActionSet:
		if step.Item == "" {
			return fmt.Errorf("item is required for set")
		}
	case ActionDelete:
		if step.Item == "" {
			return fmt.Errorf("item is required for delete")
		}
	case ActionImport:
		if len(step.Files) == 0 {
			return fmt.Errorf("files are required for import")
		}
	case ActionChecklistAdd:
		if step.Item == "" {
			return fmt.Errorf("item is required for checklist_add")
		}
	case ActionChecklistToggle:
		if step.Entry <= 0 {
			return fmt.Errorf("entry is required for checklist_toggle")
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	if e := step.Expect; e != nil && e.Error != "" {
		switch e.Error {
		case ErrorNotFound, ErrorValidation, ErrorUnknownField, ErrorBusy:
		default:
			return fmt.Errorf("unknown error class %q", e.Error)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if a.Item == "" {
		return fmt.Errorf("item is required")
	}
	switch a.Type {
	case AssertItem:
		if len(a.Fields) == 0 {
			return fmt.Errorf("fields are required for item")
		}
	case AssertAbsent, AssertChecklist:
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for log_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
