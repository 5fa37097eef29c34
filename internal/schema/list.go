package schema

import "strings"

// ListSeparator joins the elements of an ordered list field.
const ListSeparator = "; "

// SplitList splits a semicolon-joined list value, trimming every element and
// dropping empty ones. Order is preserved.
func SplitList(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// JoinList encodes list elements as the canonical "a; b; c" text.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

// NormalizeList re-encodes a list value in canonical form.
func NormalizeList(s string) string {
	return JoinList(SplitList(s))
}
