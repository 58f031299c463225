package blogstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blogdesk/internal/api"
	"github.com/roach88/blogdesk/internal/paging"
	"github.com/roach88/blogdesk/internal/store"
	"github.com/roach88/blogdesk/internal/testutil"
)

// createTestStore starts a store over a fake backend seeded with n posts.
// Request ids are req-1, req-2, ...
func createTestStore(t *testing.T, n int, opts ...Option) (*Store, *testutil.Backend) {
	t.Helper()

	b := testutil.NewBackend(t, testutil.Posts(n))
	client, err := api.New(b.URL(), api.WithHTTPClient(b.Server.Client()))
	require.NoError(t, err)

	all := append([]Option{WithIDGenerator(testutil.NewSequence("req"))}, opts...)
	s := New(paging.NewCollectionSource(client), client, all...)
	startStore(t, s)
	return s, b
}

func startStore(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
}

// memJournal records operations in memory.
type memJournal struct {
	mu  sync.Mutex
	ops []store.Operation
	err error
}

func (j *memJournal) WriteOperation(_ context.Context, op store.Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.ops = append(j.ops, op)
	return nil
}

func (j *memJournal) Ops() []store.Operation {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]store.Operation(nil), j.ops...)
}

func ids(s State) []int {
	out := make([]int, len(s.Posts))
	for i, p := range s.Posts {
		out[i] = p.ID
	}
	return out
}

func idRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
