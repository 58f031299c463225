package blogstore

import (
	"slices"

	"github.com/roach88/blogdesk/internal/blog"
)

// Kind names a store operation.
type Kind string

const (
	KindNone       Kind = ""
	KindFetchFirst Kind = "fetch_first"
	KindFetchNext  Kind = "fetch_next"
	KindCreate     Kind = "create"
	KindUpdate     Kind = "update"
	KindDelete     Kind = "delete"
)

// IsFetch reports whether k is a list fetch.
func (k Kind) IsFetch() bool {
	return k == KindFetchFirst || k == KindFetchNext
}

// Phase is a step in an operation's lifecycle.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
	// PhaseSuperseded records a fetch completion that arrived after a newer
	// fetch took the slot.
	PhaseSuperseded Phase = "superseded"
)

// Request is the single in-flight list fetch slot.
type Request struct {
	Kind   Kind   `json:"kind,omitempty"`
	ID     string `json:"id,omitempty"`
	Cursor int    `json:"cursor"`
	Phase  Phase  `json:"phase,omitempty"`
}

// Idle reports whether the slot is free.
func (r Request) Idle() bool {
	return r.Kind == KindNone
}

// State is the blog list and its bookkeeping.
type State struct {
	Posts       []blog.Post `json:"posts"`
	Error       string      `json:"error,omitempty"`
	HasMore     bool        `json:"hasMore"`
	CurrentPage int         `json:"currentPage"`

	Request       Request `json:"request"`
	Mutations     int     `json:"mutations"`
	MutationError string  `json:"mutationError,omitempty"`

	// Seq is the sequence number of the last applied event.
	Seq int64 `json:"seq"`
}

// Loading reports whether a first-page fetch is in flight.
func (s State) Loading() bool {
	return s.Request.Kind == KindFetchFirst
}

// LoadingMore reports whether a next-page fetch is in flight.
func (s State) LoadingMore() bool {
	return s.Request.Kind == KindFetchNext
}

// Busy reports whether any operation is in flight.
func (s State) Busy() bool {
	return !s.Request.Idle() || s.Mutations > 0
}

// Post returns the post with id and whether it was found.
func (s State) Post(id int) (blog.Post, bool) {
	i := blog.IndexOf(s.Posts, id)
	if i < 0 {
		return blog.Post{}, false
	}
	return s.Posts[i], true
}

func (s State) clone() State {
	s.Posts = slices.Clone(s.Posts)
	return s
}
