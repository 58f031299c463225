package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/blogdesk/internal/blog"
)

// Backend is an in-process stand-in for the mock posts API. It keeps the
// collection in memory, assigns ids on create and can be told to fail or
// stall specific methods.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	posts    []blog.Post
	nextID   int
	persist  bool
	failures map[string]int
	gates    map[string]*gate
	requests map[string]int
}

// NewBackend starts a backend seeded with posts and registers its shutdown
// with t.Cleanup.
func NewBackend(t testing.TB, posts []blog.Post) *Backend {
	t.Helper()
	b := NewBackendServer(posts)
	t.Cleanup(b.Close)
	return b
}

// NewBackendServer starts a backend without a testing.TB; the caller must
// Close it.
func NewBackendServer(posts []blog.Post) *Backend {
	b := &Backend{
		posts:    append([]blog.Post(nil), posts...),
		nextID:   len(posts) + 1,
		failures: make(map[string]int),
		gates:    make(map[string]*gate),
		requests: make(map[string]int),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

// Posts builds n posts with ids 1..n.
func Posts(n int) []blog.Post {
	posts := make([]blog.Post, n)
	for i := range posts {
		posts[i] = blog.Post{
			ID:     i + 1,
			UserID: 1,
			Title:  fmt.Sprintf("post %d", i+1),
			Body:   fmt.Sprintf("body of post %d", i+1),
		}
	}
	return posts
}

// URL returns the base URL to hand to api.New.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close shuts the server down, releasing any held requests first.
func (b *Backend) Close() {
	b.mu.Lock()
	for m, g := range b.gates {
		g.open()
		delete(b.gates, m)
	}
	b.mu.Unlock()
	b.Server.Close()
}

// SetNextID fixes the id handed to the next created post.
func (b *Backend) SetNextID(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID = id
}

// Persist makes create/update/delete change the served collection. By
// default mutations are acknowledged but not stored, like the public mock.
func (b *Backend) Persist(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persist = on
}

// Fail makes every following request with method answer status.
// A status of 0 clears the failure.
func (b *Backend) Fail(method string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, method)
		return
	}
	b.failures[method] = status
}

// Hold blocks requests with method until the returned release func is
// called. Release is idempotent.
func (b *Backend) Hold(method string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	b.mu.Lock()
	if prev := b.gates[method]; prev != nil {
		prev.open()
	}
	b.gates[method] = g
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if b.gates[method] == g {
			delete(b.gates, method)
		}
		b.mu.Unlock()
		g.open()
	}
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() {
	g.once.Do(func() { close(g.ch) })
}

// Requests returns how many requests with method were received.
func (b *Backend) Requests(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[method]
}

// Collection returns a copy of the served collection.
func (b *Backend) Collection() []blog.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]blog.Post(nil), b.posts...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests[r.Method]++
	g := b.gates[r.Method]
	status := b.failures[r.Method]
	b.mu.Unlock()

	if g != nil {
		select {
		case <-g.ch:
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/posts":
		b.serveCollection(w, r)
	case strings.HasPrefix(path, "/posts/"):
		id, err := strconv.Atoi(strings.TrimPrefix(path, "/posts/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		b.serveItem(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (b *Backend) serveCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, b.Collection())

	case http.MethodPost:
		var d blog.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		p := blog.Post{ID: b.nextID, UserID: d.UserID, Title: d.Title, Body: d.Body}
		b.nextID++
		if b.persist {
			b.posts = append(b.posts, p)
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, p)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *Backend) serveItem(w http.ResponseWriter, r *http.Request, id int) {
	b.mu.Lock()
	idx := blog.IndexOf(b.posts, id)
	b.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		if idx < 0 {
			http.NotFound(w, r)
			return
		}
		b.mu.Lock()
		p := b.posts[idx]
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		var p blog.Post
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.ID = id
		b.mu.Lock()
		if b.persist && idx >= 0 {
			b.posts[idx] = p
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		b.mu.Lock()
		if b.persist && idx >= 0 {
			b.posts = append(b.posts[:idx], b.posts[idx+1:]...)
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
