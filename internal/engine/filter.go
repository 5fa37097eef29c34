package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
)

// Filter selects items by field value. Values for one field are ORed,
// fields are ANDed, and an empty Filter matches everything. List fields
// match when any element equals a selected value.
type Filter map[string][]string

// ParseFilter builds a Filter from "Field=Value" terms. Field may be a
// canonical or column name.
func ParseFilter(terms []string) (Filter, error) {
	f := Filter{}
	for _, term := range terms {
		name, value, ok := strings.Cut(term, "=")
		if !ok {
			return nil, fmt.Errorf("parse filter %q: %w: want Field=Value", term, store.ErrValidation)
		}
		field, ok := schema.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("parse filter %q: %w", term, store.ErrUnknownField)
		}
		f[field.Name] = append(f[field.Name], strings.TrimSpace(value))
	}
	return f, nil
}

// Match reports whether it passes the filter.
func (f Filter) Match(it model.Item) bool {
	for name, want := range f {
		if len(want) == 0 {
			continue
		}
		if !matchField(name, it.Get(name), want) {
			return false
		}
	}
	return true
}

// Apply returns the items that pass the filter, preserving order.
func (f Filter) Apply(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

func matchField(name, have string, want []string) bool {
	values := []string{have}
	if field, ok := schema.Lookup(name); ok && field.Kind == schema.KindList {
		values = schema.SplitList(have)
	}
	for _, v := range values {
		for _, w := range want {
			if strings.EqualFold(v, w) {
				return true
			}
		}
	}
	return false
}
