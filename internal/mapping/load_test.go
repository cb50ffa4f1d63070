package mapping

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_InvalidPath(t *testing.T) {
	rules, problems, err := Load("invalid_path")
	assert.NotNil(t, err)
	assert.Nil(t, rules)
	assert.Nil(t, problems)
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir, err := ioutil.TempDir("", "mapping-test-")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, ioutil.WriteFile(path, []byte("{not json"), 0644))

	_, _, err = Load(path)
	assert.NotNil(t, err)
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	rules, problems, err := Load("testdata/schema_mapping.json")
	require.NoError(t, err)

	require.Len(t, rules, 3)
	assert.Equal(t, Rule{
		SourceSchema: "WORK",
		TargetSchema: "bronze",
		SourceTable:  "QUERY_FOR_ORDERS_0000",
		TargetTable:  "orders",
	}, rules[0])
	assert.Equal(t, Rule{SourceSchema: "WORK", TargetSchema: "bronze"}, rules[1])
	assert.Equal(t, Rule{SourceSchema: "DW_ENCPT", TargetSchema: "silver"}, rules[2])

	require.Len(t, problems, 1)
	assert.Equal(t, 3, problems[0].Index)
	assert.Equal(t, "missing target_schema", problems[0].Reason)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "mapping-test-")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	want := Rules{
		{SourceSchema: "WORK", TargetSchema: "bronze", SourceTable: "A", TargetTable: "a"},
		{SourceSchema: "WORK", TargetSchema: "bronze"},
	}

	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, Save(path, want))

	got, problems, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, want, got)
}
