package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type
	Item     string // Target item id
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s %s: expected %s, got %s", e.Type, e.Item, e.Expected, e.Actual)
}

// check evaluates one assertion against the final state.
func (h *Harness) check(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertItem:
		return h.assertItem(ctx, a)
	case AssertAbsent:
		return h.assertAbsent(ctx, a)
	case AssertLogCount:
		return h.assertLogCount(ctx, a)
	case AssertChecklist:
		return h.assertChecklist(ctx, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertItem checks a subset of field values. Field keys may be canonical
// or column names.
func (h *Harness) assertItem(ctx context.Context, a Assertion) error {
	it, err := h.engine.GetItem(ctx, a.Item)
	if err != nil {
		return &AssertionError{Type: a.Type, Item: a.Item, Expected: "item to exist", Actual: err.Error()}
	}

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := schema.Lookup(k)
		if !ok {
			return fmt.Errorf("item %s: unknown field %q", a.Item, k)
		}
		got := it.Get(f.Name)
		if f.Column == schema.IDColumn {
			got = it.ID
		}
		if got != a.Fields[k] {
			return &AssertionError{
				Type:     a.Type,
				Item:     a.Item,
				Expected: fmt.Sprintf("%s=%q", f.Name, a.Fields[k]),
				Actual:   fmt.Sprintf("%q", got),
			}
		}
	}
	return nil
}

func (h *Harness) assertAbsent(ctx context.Context, a Assertion) error {
	_, err := h.engine.GetItem(ctx, a.Item)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	return &AssertionError{Type: a.Type, Item: a.Item, Expected: "no item", Actual: "item exists"}
}

func (h *Harness) assertLogCount(ctx context.Context, a Assertion) error {
	entries, err := h.engine.GetChangeLog(ctx, a.Item, traceLimit)
	if err != nil {
		return err
	}

	n := 0
	for _, e := range entries {
		if a.Field == "" || e.FieldName == a.Field {
			n++
		}
	}
	if n != a.Count {
		what := "entries"
		if a.Field != "" {
			what = a.Field + " entries"
		}
		return &AssertionError{
			Type:     a.Type,
			Item:     a.Item,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprint(n),
		}
	}
	return nil
}

func (h *Harness) assertChecklist(ctx context.Context, a Assertion) error {
	count, err := h.engine.ChecklistCount(ctx, a.Item)
	if err != nil {
		return err
	}
	if count.Total != a.Total || count.Completed != a.Completed {
		return &AssertionError{
			Type:     a.Type,
			Item:     a.Item,
			Expected: fmt.Sprintf("%d/%d completed", a.Completed, a.Total),
			Actual:   fmt.Sprintf("%d/%d completed", count.Completed, count.Total),
		}
	}
	return nil
}
