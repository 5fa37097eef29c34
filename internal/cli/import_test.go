package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/testutil"
)

func TestImportCommand_CreatesAndUpdates(t *testing.T) {
	db := testDB(t)
	_, _, err := runCLI(t, "--db", db, "item", "set", "ITM-001", "Title=Old")
	require.NoError(t, err)

	path := workbook(t, "export.xlsx",
		map[string]string{"VPCR Project ID": "ITM-100", "Title": "Alpha", "Initiated Date": "2024-03-05"},
		map[string]string{"VPCR Project ID": "ITM-001", "Title": "New"},
	)

	out, _, err := runCLI(t, "--db", db, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Import succeeded")
	assert.Contains(t, out, "created:   1")
	assert.Contains(t, out, "updated:   1 (0 unchanged)")

	out, _, err = runCLI(t, "--db", db, "--format", "json", "item", "get", "ITM-100")
	require.NoError(t, err)
	fields := decodeJSON(t, out).Data.(map[string]interface{})["fields"].(map[string]interface{})
	assert.Equal(t, "Alpha", fields["Title"])
	assert.Equal(t, "05/03/2024", fields["Initiated Date"])

	out, _, err = runCLI(t, "--db", db, "log", "--item", "ITM-001")
	require.NoError(t, err)
	assert.Contains(t, out, "import_update")
	assert.Contains(t, out, "manual_update")
}

func TestImportCommand_RowErrorsArePartial(t *testing.T) {
	db := testDB(t)
	path := workbook(t, "export.xlsx",
		map[string]string{"VPCR Project ID": "ITM-1", "Title": "A"},
		map[string]string{"Title": "no id"},
		map[string]string{"VPCR Project ID": "ITM-3", "Title": "C"},
	)

	out, _, err := runCLI(t, "--db", db, "--format", "json", "import", path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeJSON(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "partial", data["outcome"])
	assert.EqualValues(t, 2, data["created"])
	rowErrs := data["errors"].([]interface{})
	require.Len(t, rowErrs, 1)
	assert.EqualValues(t, 2, rowErrs[0].(map[string]interface{})["row"])
}

func TestImportCommand_BadHeaderFails(t *testing.T) {
	db := testDB(t)
	header := schema.ExpectedHeader()
	header[0] = "Project"
	path := testutil.WriteWorkbook(t, t.TempDir(), "bad.xlsx", [][]string{header, {"ITM-1"}})

	out, _, err := runCLI(t, "--db", db, "import", path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Import failed")
	assert.Contains(t, out, "skipped "+path)
}

func TestImportCommand_ReimportUnchanged(t *testing.T) {
	db := testDB(t)
	path := workbook(t, "export.xlsx", map[string]string{"VPCR Project ID": "ITM-1", "Title": "A"})

	_, _, err := runCLI(t, "--db", db, "import", path)
	require.NoError(t, err)
	out, _, err := runCLI(t, "--db", db, "import", path)
	require.NoError(t, err)

	assert.Contains(t, out, "updated:   1 (1 unchanged)")
}
