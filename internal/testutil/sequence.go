package testutil

import (
	"fmt"
	"sync"
)

// Sequence is a resettable counter for deterministic tests. It doubles as a
// logical clock (Next) and as a request id generator (Generate), so golden
// traces are byte-identical between runs.
//
// Safe for concurrent use.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	seq    int64
	ids    int64
}

// NewSequence creates a sequence whose ids look like "<prefix>-1".
// An empty prefix selects "req".
func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "req"
	}
	return &Sequence{prefix: prefix}
}

// Next returns the next logical timestamp, starting at 1.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out by Next.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Generate returns the next request id.
func (s *Sequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids++
	return fmt.Sprintf("%s-%d", s.prefix, s.ids)
}

// Reset rewinds both counters.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
	s.ids = 0
}
