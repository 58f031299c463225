package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_Monotonic(t *testing.T) {
	s := NewSequence("")

	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())
}

func TestSequence_IDs(t *testing.T) {
	s := NewSequence("op")

	assert.Equal(t, "op-1", s.Generate())
	assert.Equal(t, "op-2", s.Generate())

	// ids and timestamps advance independently
	assert.Equal(t, int64(1), s.Next())
}

func TestSequence_Reset(t *testing.T) {
	s := NewSequence("")
	s.Next()
	s.Generate()

	s.Reset()

	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, "req-1", s.Generate())
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence("")
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen.Store(s.Next(), true)
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 50, count)
	assert.Equal(t, int64(50), s.Current())
}
