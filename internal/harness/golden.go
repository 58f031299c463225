package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// MarshalTrace renders a trace as JSON lines: a header naming the
// scenario, then one object per event. Map keys are sorted and HTML is not
// escaped so the output is stable and readable in diffs.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := struct {
		Scenario string `json:"scenario"`
		Events   int    `json:"events"`
	}{scenarioName, len(trace)}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("marshal trace header: %w", err)
	}

	for _, ev := range trace {
		if err := enc.Encode(ev); err != nil {
			return nil, fmt.Errorf("marshal trace event %d: %w", ev.Seq, err)
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario, fails t on assertion errors and compares
// the trace with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n  %s", scenario.Name, strings.Join(result.Errors, "\n  "))
	}

	data, err := MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		return result, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}

// GoldenPath returns where the golden trace for a scenario file lives:
// golden/<file name>.golden next to the scenario.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden stores the trace for scenarioFile.
func WriteGolden(scenarioFile string, scenario *Scenario, result *Result) error {
	data, err := MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		return err
	}
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the trace for scenarioFile matches its
// golden file. exists is false when there is no golden file.
func CompareGolden(scenarioFile string, scenario *Scenario, result *Result) (match, exists bool, err error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, true, fmt.Errorf("failed to read golden file: %w", err)
	}

	got, err := MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		return false, true, err
	}
	return bytes.Equal(want, got), true, nil
}
