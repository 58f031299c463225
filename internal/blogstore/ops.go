package blogstore

import (
	"context"

	"github.com/roach88/blogdesk/internal/blog"
)

// FetchFirstPage replaces the list with the first page of the collection
// and resets paging: CurrentPage becomes 1 and HasMore reflects whether
// items remain. It takes the fetch slot even if a next-page fetch holds
// it. On failure Error is set and Posts are left alone.
func (s *Store) FetchFirstPage(ctx context.Context) (State, error) {
	return s.fetch(ctx, KindFetchFirst, 0)
}

// FetchPage appends the page at cursor. Cursors past the end append
// nothing and clear HasMore. Negative cursors are treated as 0.
//
// Returns ErrRequestInFlight without sending a request if another list
// fetch is running.
func (s *Store) FetchPage(ctx context.Context, cursor int) (State, error) {
	if cursor < 0 {
		cursor = 0
	}
	return s.fetch(ctx, KindFetchNext, cursor)
}

// FetchNextPage appends the page after the last one loaded.
func (s *Store) FetchNextPage(ctx context.Context) (State, error) {
	return s.fetch(ctx, KindFetchNext, -1)
}

func (s *Store) fetch(ctx context.Context, kind Kind, cursor int) (State, error) {
	id := s.ids.Generate()

	out, err := s.begin(ctx, event{kind: kind, phase: PhasePending, requestID: id, cursor: cursor})
	if err != nil {
		return out.state, &OpError{Op: kind, RequestID: id, Err: err}
	}

	page, fetchErr := s.source.Page(ctx, out.cursor, s.pageSize)

	ev := event{kind: kind, requestID: id, cursor: out.cursor}
	if fetchErr != nil {
		ev.phase = PhaseRejected
		ev.err = fetchErr
	} else {
		ev.phase = PhaseFulfilled
		ev.page = page
	}

	out, err = s.settle(ev)
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		return out.state, &OpError{Op: kind, RequestID: id, Err: err}
	}
	return out.state, nil
}

// CreatePost validates d, sends it to the backend and prepends the
// created post. A draft that fails validation returns blog.ValidationErrors
// and sends nothing.
func (s *Store) CreatePost(ctx context.Context, d blog.Draft) (blog.Post, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return blog.Post{}, err
	}

	id := s.ids.Generate()
	if _, err := s.begin(ctx, event{kind: KindCreate, phase: PhasePending, requestID: id}); err != nil {
		return blog.Post{}, &OpError{Op: KindCreate, RequestID: id, Err: err}
	}

	created, callErr := s.backend.Create(ctx, d)
	return created, s.settleMutationCall(event{kind: KindCreate, requestID: id, post: created}, callErr)
}

// UpdatePost validates p, sends it to the backend and replaces the list
// entry whose id matches the response. An id not in the list is not an
// error.
func (s *Store) UpdatePost(ctx context.Context, p blog.Post) (blog.Post, error) {
	d := blog.DraftFrom(p).Normalize()
	if err := d.Validate(); err != nil {
		return blog.Post{}, err
	}
	p = d.Apply(p)

	id := s.ids.Generate()
	if _, err := s.begin(ctx, event{kind: KindUpdate, phase: PhasePending, requestID: id, id: p.ID}); err != nil {
		return blog.Post{}, &OpError{Op: KindUpdate, RequestID: id, Err: err}
	}

	updated, callErr := s.backend.Update(ctx, p)
	return updated, s.settleMutationCall(event{kind: KindUpdate, requestID: id, id: p.ID, post: updated}, callErr)
}

// DeletePost deletes id on the backend and removes every list entry
// with that id.
func (s *Store) DeletePost(ctx context.Context, postID int) error {
	id := s.ids.Generate()
	if _, err := s.begin(ctx, event{kind: KindDelete, phase: PhasePending, requestID: id, id: postID}); err != nil {
		return &OpError{Op: KindDelete, RequestID: id, Err: err}
	}

	callErr := s.backend.Delete(ctx, postID)
	return s.settleMutationCall(event{kind: KindDelete, requestID: id, id: postID}, callErr)
}

func (s *Store) settleMutationCall(ev event, callErr error) error {
	if callErr != nil {
		ev.phase = PhaseRejected
		ev.err = callErr
		ev.post = blog.Post{}
	} else {
		ev.phase = PhaseFulfilled
	}

	_, err := s.settle(ev)
	if err == nil {
		err = callErr
	}
	if err != nil {
		return &OpError{Op: ev.kind, RequestID: ev.requestID, Err: err}
	}
	return nil
}

// begin submits a pending event. If ctx ends before the loop answers, the
// event may still be applied later; a follow-up rejected event is then
// queued so the slot does not stay taken.
func (s *Store) begin(ctx context.Context, ev event) (outcome, error) {
	ev.reply = make(chan outcome, 1)
	if !s.queue.Enqueue(ev) {
		return outcome{state: s.Snapshot()}, ErrStopped
	}

	select {
	case out := <-ev.reply:
		return out, out.err
	case <-ctx.Done():
		go s.abandon(ev, ctx.Err())
		return outcome{state: s.Snapshot()}, ctx.Err()
	}
}

func (s *Store) abandon(ev event, cause error) {
	var out outcome
	select {
	case out = <-ev.reply:
	case <-s.done:
		return
	}
	if out.err != nil {
		return
	}

	ev.phase = PhaseRejected
	ev.err = cause
	ev.cursor = out.cursor
	ev.reply = nil
	s.queue.Enqueue(ev)
}

// settle submits a fulfilled or rejected event and waits for it to be
// applied. The loop never blocks on the network, so the wait ignores the
// caller's context.
func (s *Store) settle(ev event) (outcome, error) {
	ev.reply = make(chan outcome, 1)
	if !s.queue.Enqueue(ev) {
		return outcome{state: s.Snapshot()}, ErrStopped
	}
	out := <-ev.reply
	return out, out.err
}
