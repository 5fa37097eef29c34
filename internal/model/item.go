package model

import "sort"

// Item is a change-request record. Fields is keyed by canonical field name
// (see package schema); absent keys read as the empty string.
type Item struct {
	ID     string            `json:"id" yaml:"id"`
	Fields map[string]string `json:"fields" yaml:"fields"`
}

// Get returns the value of a canonical field, or "" when unset.
func (it Item) Get(name string) string {
	if it.Fields == nil {
		return ""
	}
	return it.Fields[name]
}

// FieldNames returns the names of the non-empty fields, sorted.
func (it Item) FieldNames() []string {
	names := make([]string, 0, len(it.Fields))
	for k, v := range it.Fields {
		if v == "" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
