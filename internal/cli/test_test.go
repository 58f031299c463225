package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func TestTestCommand_Scenarios(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, err := env.run("test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ paginate_25\n")
	assert.Contains(t, out, "✓ mutate_and_fail\n")
	assert.Contains(t, out, "✓ session_logout\n")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommand_JSONAndFilter(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, err := env.run("test", scenariosDir, "--filter", "pag*", "--format", "json")
	require.NoError(t, err)

	resp := decode[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "paginate_25", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_Errors(t *testing.T) {
	env := newCLIEnv(t, 0)

	_, err := env.run("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")

	_, err = env.run("test", env.path("nowhere"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")

	_, err = env.run("test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_EmptyDir(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, err := env.run("test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	env := newCLIEnv(t, 0)
	dir := t.TempDir()

	data, err := os.ReadFile(filepath.Join(scenariosDir, "paginate_25.yaml"))
	require.NoError(t, err)
	file := filepath.Join(dir, "paginate_25.yaml")
	require.NoError(t, os.WriteFile(file, data, 0o644))

	out, err := env.run("test", file, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ paginate_25 (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "paginate_25.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "..", "golden", "paginate_25.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	_, err = env.run("test", file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "paginate_25.golden"), []byte("{}\n"), 0o644))
	out, err = env.run("test", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	env := newCLIEnv(t, 0)
	dir := t.TempDir()

	file := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: broken
description: asserts a wrong count
backend:
  posts: 3
steps:
  - op: fetch_first
assertions:
  - type: state
    expect:
      posts: 4
`), 0o644))

	out, err := env.run("test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "posts: expected 4, got 3")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}
