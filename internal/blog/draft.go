package blog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Minimum lengths enforced on drafts, counted in runes after trimming.
const (
	MinTitleLength = 3
	MinBodyLength  = 10
)

// Validation messages. These are shown inline next to the offending field.
const (
	MsgTitleRequired = "Title is required"
	MsgTitleTooShort = "Title must be at least 3 characters"
	MsgBodyRequired  = "Content is required"
	MsgBodyTooShort  = "Content must be at least 10 characters"
)

// Draft is the user-editable part of a post.
type Draft struct {
	Title  string `json:"title" yaml:"title"`
	Body   string `json:"body" yaml:"body"`
	UserID int    `json:"userId" yaml:"userId,omitempty"`
}

// DraftFrom returns a draft holding the editable fields of p.
func DraftFrom(p Post) Draft {
	return Draft{Title: p.Title, Body: p.Body, UserID: p.UserID}
}

// Normalize trims surrounding whitespace, NFC-normalizes both fields and
// fills in the default user id.
func (d Draft) Normalize() Draft {
	d.Title = norm.NFC.String(strings.TrimSpace(d.Title))
	d.Body = norm.NFC.String(strings.TrimSpace(d.Body))
	if d.UserID == 0 {
		d.UserID = DefaultUserID
	}
	return d
}

// Validate checks the normalized draft and returns nil when it may be
// submitted. Each field reports at most one message.
func (d Draft) Validate() error {
	n := d.Normalize()
	errs := ValidationErrors{}

	switch {
	case n.Title == "":
		errs["title"] = MsgTitleRequired
	case utf8.RuneCountInString(n.Title) < MinTitleLength:
		errs["title"] = MsgTitleTooShort
	}

	switch {
	case n.Body == "":
		errs["body"] = MsgBodyRequired
	case utf8.RuneCountInString(n.Body) < MinBodyLength:
		errs["body"] = MsgBodyTooShort
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Apply overlays the normalized draft on an existing post, keeping its id.
func (d Draft) Apply(p Post) Post {
	n := d.Normalize()
	p.Title = n.Title
	p.Body = n.Body
	p.UserID = n.UserID
	return p
}

// ValidationErrors maps a field name ("title", "body") to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, v[f])
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for a field, or "" if the field is valid.
func (v ValidationErrors) Field(name string) string {
	return v[name]
}
