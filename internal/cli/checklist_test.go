package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklist_Lifecycle(t *testing.T) {
	db := testDB(t)
	_, _, err := runCLI(t, "--db", db, "item", "set", "ITM-1", "Title=A")
	require.NoError(t, err)

	out, _, err := runCLI(t, "--db", db, "checklist", "add", "ITM-1", "request PPAP")
	require.NoError(t, err)
	assert.Contains(t, out, "Added entry 1 to ITM-1")
	_, _, err = runCLI(t, "--db", db, "checklist", "add", "ITM-1", "send PO")
	require.NoError(t, err)

	out, _, err = runCLI(t, "--db", db, "checklist", "status", "ITM-1")
	require.NoError(t, err)
	assert.Contains(t, out, "ITM-1: 2 of 2 entries open")

	_, _, err = runCLI(t, "--db", db, "checklist", "toggle", "1")
	require.NoError(t, err)
	_, _, err = runCLI(t, "--db", db, "checklist", "update", "2", "--description", "send PO to Acme", "--completed")
	require.NoError(t, err)

	out, _, err = runCLI(t, "--db", db, "checklist", "list", "ITM-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[x]  request PPAP")
	assert.Contains(t, out, "[x]  send PO to Acme")

	out, _, err = runCLI(t, "--db", db, "--format", "json", "checklist", "status", "ITM-1")
	require.NoError(t, err)
	st := decodeJSON(t, out).Data.(map[string]interface{})
	assert.Equal(t, false, st["incomplete"])
	assert.EqualValues(t, 2, st["completed"])

	_, _, err = runCLI(t, "--db", db, "checklist", "delete", "1")
	require.NoError(t, err)
	out, _, err = runCLI(t, "--db", db, "--format", "json", "checklist", "list", "ITM-1")
	require.NoError(t, err)
	assert.Len(t, decodeJSON(t, out).Data.([]interface{}), 1)
}

func TestChecklist_Errors(t *testing.T) {
	db := testDB(t)
	_, _, err := runCLI(t, "--db", db, "item", "set", "ITM-1", "Title=A")
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"unknown item", []string{"add", "ITM-404", "x"}, ExitFailure, ErrCodeNotFound},
		{"blank description", []string{"add", "ITM-1", "   "}, ExitCommandError, ErrCodeValidation},
		{"bad entry id", []string{"toggle", "abc"}, ExitCommandError, ErrCodeValidation},
		{"missing entry", []string{"toggle", "99"}, ExitFailure, ErrCodeNotFound},
		{"update without flags", []string{"update", "1"}, ExitCommandError, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, append([]string{"--db", db, "checklist"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestChecklist_DeletedWithItem(t *testing.T) {
	db := testDB(t)
	_, _, err := runCLI(t, "--db", db, "item", "set", "ITM-1", "Title=A")
	require.NoError(t, err)
	_, _, err = runCLI(t, "--db", db, "checklist", "add", "ITM-1", "x")
	require.NoError(t, err)

	_, _, err = runCLI(t, "--db", db, "item", "delete", "ITM-1")
	require.NoError(t, err)

	out, _, err := runCLI(t, "--db", db, "checklist", "list", "ITM-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No checklist entries for ITM-1.")
}
