package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{out: &out}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("DEFAULT_WORKSPACE", "cli")
	t.Setenv("LOG_LEVEL", "ERROR")
	return dir
}

func TestParseAndStats(t *testing.T) {
	out, err := run(t, "parse", "1+2-3.5")
	require.NoError(t, err)
	assert.Equal(t, "1 +2 -3.5\n", out)

	out, err = run(t, "stats", "2+2+5")
	require.NoError(t, err)
	assert.Contains(t, out, "count=3 total=9 mean=3 median=2")
	assert.Contains(t, out, "mode=2")
}

func TestSetPinAndDelete(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "set", "4+4+1")
	require.NoError(t, err)
	assert.Contains(t, out, "Numbers (original): 4, 4, 1")

	out, err = run(t, "pin", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Pinned Set 1"`)

	out, err = run(t, "pins")
	require.NoError(t, err)
	id := strings.TrimPrefix(strings.SplitN(out, "]", 2)[0], "[")
	require.NotEmpty(t, id)

	_, err = run(t, "delete", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires confirmation")

	out, err = run(t, "delete", id, "--yes")
	require.NoError(t, err)
	assert.NotContains(t, out, "Pinned Set 1")

	out, err = run(t, "workspaces")
	require.NoError(t, err)
	assert.Equal(t, "cli\n", out)
}

func TestExportImportAndReport(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "out.xlsx")

	_, err := run(t, "set", "1+2+3")
	require.NoError(t, err)
	_, err = run(t, "pin")
	require.NoError(t, err)

	out, err := run(t, "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported workspace cli")

	out, err = run(t, "--workspace", "other", "import", path, "--sheet", "Numbers")
	require.NoError(t, err)
	assert.Contains(t, out, "Pinned Set 1")

	out, err = run(t, "-w", "other", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "# Number stats: other")
}

func TestMoveRejectsBadDirection(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "move", "x", "up")
	assert.Error(t, err)
}
