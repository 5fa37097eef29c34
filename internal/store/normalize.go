package store

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeValue is the canonical form of a stored field value: NFC
// composed and trimmed. Two values are "the same" for change detection
// exactly when their normalized forms are equal.
func NormalizeValue(v string) string {
	return strings.TrimSpace(norm.NFC.String(v))
}
