package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/vpcr/internal/schema"
)

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[ T]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?)?$`)
)

// NormalizeDate rewrites a date cell as dd/mm/yyyy.
//
//   - yyyy-mm-dd, optionally followed by a time, is reordered.
//   - m/d/yyyy (or m-d-yyyy) is swapped to day-first unless the first
//     component exceeds 12, in which case the value is returned unchanged.
//   - anything else, including blanks, is returned trimmed but otherwise
//     verbatim.
func NormalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if m := isoDate.FindStringSubmatch(v); m != nil {
		return m[3] + "/" + m[2] + "/" + m[1]
	}
	m := slashDate.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if first > 12 {
		return v
	}
	if first == 0 || second == 0 || second > 31 {
		return v
	}
	return fmt.Sprintf("%02d/%02d/%s", second, first, m[3])
}

// NormalizeCell applies the field-specific rule for f's kind.
func NormalizeCell(f schema.Field, v string) string {
	switch f.Kind {
	case schema.KindDate:
		return NormalizeDate(v)
	case schema.KindList:
		return schema.NormalizeList(v)
	default:
		return strings.TrimSpace(v)
	}
}

// convertRow maps one row of cells, laid out as header, to an item id and
// canonical fields. Columns whose header the field table does not know are
// ignored.
func convertRow(header, cells []string) (string, map[string]string) {
	var itemID string
	fields := make(map[string]string, len(header))
	for i, h := range header {
		f, ok := schema.ByHeader(h)
		if !ok {
			continue
		}
		var v string
		if i < len(cells) {
			v = NormalizeCell(f, cells[i])
		}
		if f.Column == schema.IDColumn {
			itemID = v
			continue
		}
		fields[f.Name] = v
	}
	return itemID, fields
}
