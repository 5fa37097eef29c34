package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	path := WriteWorkbook(t, t.TempDir(), "book.xlsx", [][]string{
		{"A", "B", "C"},
		{"1", "", "3/4/2024"},
	})

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A", "B", "C"}, rows[0])
	assert.Equal(t, "3/4/2024", rows[1][2])
}

func TestDataRow(t *testing.T) {
	header := []string{"ID", "Title", "Status"}

	row := DataRow(header, map[string]string{"ID": "ITM-1", "Status": "Open"})

	assert.Equal(t, []string{"ITM-1", "", "Open"}, row)
}

func TestSetCell_DateFormat(t *testing.T) {
	path := WriteWorkbook(t, t.TempDir(), "dates.xlsx", [][]string{{"A", "B"}, {"x", ""}})

	SetCell(t, path, "B2", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 14)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	raw, err := f.GetCellValue(DefaultSheet, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "45306", raw)
}
