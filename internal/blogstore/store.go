package blogstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/paging"
	"github.com/roach88/blogdesk/internal/store"
)

// Backend performs post mutations. *api.Client implements it.
type Backend interface {
	Create(ctx context.Context, d blog.Draft) (blog.Post, error)
	Update(ctx context.Context, p blog.Post) (blog.Post, error)
	Delete(ctx context.Context, id int) error
}

// Journal records applied phases. *store.Store implements it.
type Journal interface {
	WriteOperation(ctx context.Context, op store.Operation) error
}

// subscriberBuffer is how many snapshots a subscriber may fall behind
// before further snapshots are dropped for it.
const subscriberBuffer = 16

// Store is the blog list store.
//
// Thread-safety model:
//   - operations and Snapshot: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - state: only mutated inside Run
type Store struct {
	source   paging.Source
	backend  Backend
	journal  Journal
	clock    *Clock
	ids      IDGenerator
	logger   *slog.Logger
	pageSize int

	queue   *eventQueue
	state   State
	current atomic.Pointer[State]
	running atomic.Bool
	done    chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan State
	nextID int
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithJournal records every applied phase to j.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// WithClock replaces the sequence clock, e.g. to resume from a journal.
func WithClock(c *Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithIDGenerator replaces the request id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithPageSize sets the page size. Values <= 0 keep paging.DefaultSize.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a Store reading pages from source and sending mutations to
// backend. Call Run before issuing operations.
func New(source paging.Source, backend Backend, opts ...Option) *Store {
	s := &Store{
		source:   source,
		backend:  backend,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		pageSize: paging.DefaultSize,
		queue:    newEventQueue(),
		done:     make(chan struct{}),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := State{}
	s.current.Store(&initial)
	return s
}

// PageSize returns the configured page size.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Run applies events until ctx is cancelled or Stop is called. Events
// queued before Stop are still applied.
//
// A failed journal write is logged and processing continues; the in-memory
// state stays authoritative.
func (s *Store) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("blog store already running")
	}
	defer s.finish()

	s.logger.Debug("blog store starting", "page_size", s.pageSize)

	for {
		if ev, ok := s.queue.TryDequeue(); ok {
			s.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Debug("blog store stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			if s.queue.Drained() {
				s.logger.Debug("blog store stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued events are applied.
func (s *Store) Stop() {
	s.queue.Close()
}

// Done is closed when Run has returned.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.current.Load().clone()
}

// Subscribe returns a channel that receives a snapshot after every applied
// event that changed state. A subscriber that falls behind misses
// snapshots rather than stalling the loop. The channel is closed by cancel
// or when Run returns.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan State, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// process applies one event. Called only from Run.
func (s *Store) process(ctx context.Context, ev event) {
	seq := s.clock.Next()
	res := s.apply(ev)

	if res.changed {
		s.state.Seq = seq
		snap := s.state.clone()
		s.current.Store(&snap)
		s.publish(snap)

		s.logger.Debug("applied",
			"kind", ev.kind,
			"phase", res.phase,
			"request", ev.requestID,
			"seq", seq,
			"posts", len(s.state.Posts),
		)
	}

	if res.journal {
		s.record(ctx, ev, res, seq)
	}

	if ev.reply != nil {
		ev.reply <- outcome{state: s.state.clone(), cursor: res.cursor, err: res.err}
	}
}

func (s *Store) record(ctx context.Context, ev event, res applied, seq int64) {
	if s.journal == nil {
		return
	}
	op := store.Operation{
		RequestID: ev.requestID,
		Kind:      string(ev.kind),
		Phase:     string(res.phase),
		Seq:       seq,
		Detail:    res.detail,
	}
	if ev.err != nil {
		op.Error = ev.err.Error()
	}
	if err := s.journal.WriteOperation(ctx, op); err != nil {
		s.logger.Error("journal write failed",
			"kind", ev.kind,
			"phase", res.phase,
			"request", ev.requestID,
			"seq", seq,
			"error", err,
		)
	}
}

func (s *Store) publish(snap State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- snap.clone():
		default:
			s.logger.Debug("subscriber behind, snapshot dropped", "subscriber", id, "seq", snap.Seq)
		}
	}
}

// finish runs when Run returns: pending callers are released and
// subscribers closed.
func (s *Store) finish() {
	s.queue.Close()
	for {
		ev, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		if ev.reply != nil {
			ev.reply <- outcome{state: s.state.clone(), err: ErrStopped}
		}
	}

	s.subMu.Lock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()

	close(s.done)
}
