package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/storagemodels"
)

func seedTable(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	config := filepath.Join(dir, "storage.yaml")
	require.NoError(t, os.WriteFile(config, []byte("type: json\nfile:\n  directory: "+dir+"\n"), 0o600))

	creds, err := storagemodels.LoadCredentials(config)
	require.NoError(t, err)
	desc, err := recordDescriptor("id")
	require.NoError(t, err)
	s, err := fieldstore.Open(ctx, creds, "items", desc)
	require.NoError(t, err)

	items := []record{
		{"id": "b", "name": "Bolt", "price": 2.5, "stock": map[string]any{"count": 10}},
		{"id": "a", "name": "Anchor", "price": 40, "stock": map[string]any{"count": 1}},
		{"id": "c", "name": "Cable", "price": 12, "stock": map[string]any{"count": 0}},
	}
	_, err = s.SaveAll(ctx, items).Await(ctx)
	require.NoError(t, err)
	_, err = s.Close(ctx).Await(ctx)
	require.NoError(t, err)
	return config
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storagectl version "+fieldstore.Version)
}

func TestCount(t *testing.T) {
	config := seedTable(t)
	out, err := runCommand(t, "-config", config, "-table", "items", "count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestGet(t *testing.T) {
	config := seedTable(t)
	out, err := runCommand(t, "-config", config, "-table", "items", "get", "c")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Cable", got["name"])

	_, err = runCommand(t, "-config", config, "-table", "items", "get", "zz")
	assert.True(t, storeerrors.IsNotFound(err))
}

func TestFind(t *testing.T) {
	config := seedTable(t)
	out, err := runCommand(t, "-config", config, "-table", "items",
		"find", "-field", "price", "-op", "GREATER_THAN", "-value", "5", "-sort", "desc")
	require.NoError(t, err)

	var found []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 2)
	assert.Equal(t, "Anchor", found[0]["name"])
	assert.Equal(t, "Cable", found[1]["name"])

	_, err = runCommand(t, "-config", config, "-table", "items", "find", "-field", "price", "-op", "LIKE", "-value", "5")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	config := seedTable(t)
	target := filepath.Join(t.TempDir(), "items.json")
	_, err := runCommand(t, "-config", config, "-table", "items", "export", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var exported struct {
		Table      string           `json:"table"`
		Storage    string           `json:"storage"`
		ExportedAt string           `json:"exportedAt"`
		Count      int              `json:"count"`
		Records    []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "items", exported.Table)
	assert.Equal(t, "JSON", exported.Storage)
	assert.NotEmpty(t, exported.ExportedAt)
	assert.Equal(t, 3, exported.Count)
	require.Len(t, exported.Records, 3)
	assert.Equal(t, "a", exported.Records[0]["id"], "records are ordered by id")

	out, err := runCommand(t, "-config", config, "-table", "items", "export", "-format", "yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "count: 3") || strings.Contains(out, "\ncount: 3"))
}

func TestRenameField(t *testing.T) {
	config := seedTable(t)
	_, err := runCommand(t, "-config", config, "-table", "items", "rename-field", "stock.count", "quantity")
	require.NoError(t, err)

	out, err := runCommand(t, "-config", config, "-table", "items",
		"find", "-field", "quantity", "-op", "GREATER_THAN_OR_EQUAL", "-value", "1", "-sort", "asc")
	require.NoError(t, err)
	var found []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 2)
	assert.Equal(t, "Anchor", found[0]["name"])

	_, err = runCommand(t, "-config", config, "-table", "items", "rename-field", "only-one")
	assert.Error(t, err)
}

func TestPurge(t *testing.T) {
	config := seedTable(t)
	_, err := runCommand(t, "-config", config, "-table", "items", "purge")
	assert.Error(t, err, "purge needs confirmation")

	_, err = runCommand(t, "-config", config, "-table", "items", "purge", "-yes")
	require.NoError(t, err)

	out, err := runCommand(t, "-config", config, "-table", "items", "count")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestUsageErrors(t *testing.T) {
	_, err := runCommand(t)
	assert.Error(t, err)

	_, err = runCommand(t, "-table", "items", "launch")
	assert.Error(t, err)

	config := seedTable(t)
	_, err = runCommand(t, "-config", config, "count")
	assert.Error(t, err, "-table is required")
}

func TestParseOperand(t *testing.T) {
	v, err := parseOperand("30")
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = parseOperand("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = parseOperand("Mike")
	require.NoError(t, err)
	assert.Equal(t, "Mike", v)

	_, err = parseOperand("{a: 1}")
	assert.Error(t, err)
}
