package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestOperation(requestID, kind, phase string, seq int64) Operation {
	return Operation{
		RequestID: requestID,
		Kind:      kind,
		Phase:     phase,
		Seq:       seq,
	}
}
