package blog

import "fmt"

// DefaultUserID is the author id attached to every draft. The mock backend
// has no notion of the logged-in user.
const DefaultUserID = 1

// Post is a blog post as returned by the backend. ID is assigned by the
// backend on create.
type Post struct {
	ID     int    `json:"id" yaml:"id"`
	UserID int    `json:"userId" yaml:"userId"`
	Title  string `json:"title" yaml:"title"`
	Body   string `json:"body" yaml:"body"`
}

// String returns a one-line summary for logs.
func (p Post) String() string {
	return fmt.Sprintf("#%d %q", p.ID, p.Title)
}

// IndexOf returns the position of the first post with the given id, or -1.
func IndexOf(posts []Post, id int) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}
