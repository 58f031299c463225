// Package paging turns a data source into fixed-size pages addressed by a
// page cursor.
//
// The cursor counts consumed pages: cursor 0 is the first page, cursor n
// covers items [n*size, n*size+size). The blog store only sees Page values,
// so a backend with real server-side paging can replace CollectionSource
// without touching the store's page-state rules.
package paging

import (
	"context"
	"fmt"

	"github.com/roach88/blogdesk/internal/blog"
)

// DefaultSize is the number of posts per page.
const DefaultSize = 10

// Page is one slice of a collection.
type Page struct {
	Items   []blog.Post
	Cursor  int  // cursor this page was read at
	Total   int  // size of the underlying collection
	HasMore bool // true iff items remain past this page
}

// Next returns the cursor of the following page.
func (p Page) Next() int {
	return p.Cursor + 1
}

// Source yields pages of posts.
type Source interface {
	Page(ctx context.Context, cursor, size int) (Page, error)
}

// Lister fetches a full collection in one request.
type Lister interface {
	List(ctx context.Context) ([]blog.Post, error)
}

// Slice cuts page cursor out of items. Cursors past the end give an empty
// page with HasMore false; negative cursors are treated as 0.
func Slice(items []blog.Post, cursor, size int) Page {
	if size <= 0 {
		size = DefaultSize
	}
	if cursor < 0 {
		cursor = 0
	}

	total := len(items)
	start := cursor * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	page := make([]blog.Post, end-start)
	copy(page, items[start:end])

	return Page{
		Items:   page,
		Cursor:  cursor,
		Total:   total,
		HasMore: end < total,
	}
}

// CollectionSource pages over a backend that only returns the whole
// collection. Every call refetches everything.
type CollectionSource struct {
	lister Lister
}

// NewCollectionSource wraps a full-collection lister.
func NewCollectionSource(l Lister) *CollectionSource {
	return &CollectionSource{lister: l}
}

// Page implements Source.
func (s *CollectionSource) Page(ctx context.Context, cursor, size int) (Page, error) {
	items, err := s.lister.List(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list collection: %w", err)
	}
	return Slice(items, cursor, size), nil
}

// StaticSource pages over a fixed in-memory collection.
type StaticSource []blog.Post

// Page implements Source.
func (s StaticSource) Page(_ context.Context, cursor, size int) (Page, error) {
	return Slice(s, cursor, size), nil
}

var (
	_ Source = (*CollectionSource)(nil)
	_ Source = StaticSource(nil)
)
