package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blogdesk/internal/testutil"
)

// cliEnv is an isolated config, database and fake backend for running
// commands end to end.
type cliEnv struct {
	t       *testing.T
	dir     string
	backend *testutil.Backend
}

func newCLIEnv(t *testing.T, posts int) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	backend := testutil.NewBackend(t, testutil.Posts(posts))

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("BLOGDESK_BASE_URL", backend.URL())
	t.Setenv("BLOGDESK_DATABASE", filepath.Join(dir, "blogdesk.db"))
	t.Setenv("BLOGDESK_STORAGE", "sqlite")

	return &cliEnv{t: t, dir: dir, backend: backend}
}

// run executes the root command with args and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	out, _, err := e.runWithInput("", args...)
	return out, err
}

func (e *cliEnv) runWithInput(input string, args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func (e *cliEnv) login() {
	e.t.Helper()
	_, err := e.run("login", "--email", "ann@example.com")
	require.NoError(e.t, err)
}

func (e *cliEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

// response is CLIResponse with a typed payload.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
