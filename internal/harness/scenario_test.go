package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: minimal
backend:
  posts: 2
  next_id: 50
  persist: true
page_size: 5
steps:
  - op: fetch_page
    cursor: 0
  - op: create
    draft: { title: abc, body: "0123456789" }
assertions:
  - type: requests
    method: POST
    count: 1
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, 50, s.Backend.NextID)
	assert.True(t, s.Backend.Persist)
	assert.Equal(t, 5, s.PageSize)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, 0, *s.Steps[0].Cursor)
	assert.Equal(t, "abc", s.Steps[1].Draft.Title)
}

func TestParseScenario_Invalid(t *testing.T) {
	base := "description: d\nbackend: {posts: 1}\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\n" + base + "stepz: []\n", "failed to parse YAML"},
		{"missing name", base + "steps: [{op: fetch_first}]\nassertions: [{type: requests, method: GET}]\n", "name is required"},
		{"no steps", "name: x\n" + base + "steps: []\nassertions: [{type: requests, method: GET}]\n", "steps list is required"},
		{"no assertions", "name: x\n" + base + "steps: [{op: fetch_first}]\n", "assertions list is required"},
		{"unknown op", "name: x\n" + base + "steps: [{op: explode}]\nassertions: [{type: requests, method: GET}]\n", `unknown op "explode"`},
		{"page without cursor", "name: x\n" + base + "steps: [{op: fetch_page}]\nassertions: [{type: requests, method: GET}]\n", "requires cursor"},
		{"delete without id", "name: x\n" + base + "steps: [{op: delete}]\nassertions: [{type: requests, method: GET}]\n", "delete requires id"},
		{"bad error class", "name: x\n" + base + "steps: [{op: fetch_first, expect: {error: nope}}]\nassertions: [{type: requests, method: GET}]\n", "unknown error class"},
		{"bad assertion", "name: x\n" + base + "steps: [{op: fetch_first}]\nassertions: [{type: vibes}]\n", `unknown type "vibes"`},
		{"state without expect", "name: x\n" + base + "steps: [{op: fetch_first}]\nassertions: [{type: state}]\n", "state requires expect"},
		{"short order", "name: x\n" + base + "steps: [{op: fetch_first}]\nassertions: [{type: journal_order, entries: [a/b]}]\n", "at least 2 entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.yaml"), []byte("x"), 0o644))

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, files)

	single, err := FindScenarios(filepath.Join(dir, "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, single)

	_, err = FindScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
