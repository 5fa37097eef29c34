package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/testutil"
)

// runCLI executes the root command with args and returns stdout, stderr
// and the command error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testDB returns a database path inside a fresh temp dir.
func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "vpcr.db")
}

// decodeJSON parses a --format json response.
func decodeJSON(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// workbook writes an xlsx with the expected header and one row per map,
// keyed by header title.
func workbook(t *testing.T, name string, rows ...map[string]string) string {
	t.Helper()
	header := schema.ExpectedHeader()
	data := [][]string{header}
	for _, r := range rows {
		data = append(data, testutil.DataRow(header, r))
	}
	return testutil.WriteWorkbook(t, t.TempDir(), name, data)
}
