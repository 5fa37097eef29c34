package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/schema"
)

func TestSchemaCommand_Golden(t *testing.T) {
	out, _, err := runCLI(t, "schema")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schema", []byte(out))
}

func TestSchemaCommand_JSON(t *testing.T) {
	out, _, err := runCLI(t, "--format", "json", "schema")
	require.NoError(t, err)

	resp := decodeJSON(t, out)
	assert.Equal(t, "ok", resp.Status)
	fields, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, fields, len(schema.Fields))

	first := fields[0].(map[string]interface{})
	assert.Equal(t, schema.IDName, first["name"])
	assert.Equal(t, schema.IDColumn, first["column"])
	assert.Equal(t, schema.IDHeader, first["header"])
}
