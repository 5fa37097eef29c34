package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/store"
)

func items() []model.Item {
	return []model.Item{
		{ID: "1", Fields: map[string]string{"Status": "Open", "Supplier": "Acme", "Plants Affected": "Lyon; Turin"}},
		{ID: "2", Fields: map[string]string{"Status": "Closed", "Supplier": "Acme", "Plants Affected": "Turin"}},
		{ID: "3", Fields: map[string]string{"Status": "Open", "Supplier": "Globex", "Plants Affected": "Graz"}},
	}
}

func ids(items []model.Item) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{"empty matches all", nil, []string{"1", "2", "3"}},
		{"single value", []string{"Status=Open"}, []string{"1", "3"}},
		{"values OR within field", []string{"Supplier=Globex", "Supplier=acme"}, []string{"1", "2", "3"}},
		{"fields AND", []string{"Status=Open", "Supplier=Acme"}, []string{"1"}},
		{"list element", []string{"plants_affected=Turin"}, []string{"1", "2"}},
		{"no match", []string{"Status=Draft"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.terms)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(f.Apply(items())))
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	_, err := ParseFilter([]string{"Status"})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = ParseFilter([]string{"Colour=red"})
	assert.ErrorIs(t, err, store.ErrUnknownField)
}
