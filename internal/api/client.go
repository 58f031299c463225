package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/blogdesk/internal/blog"
)

// DefaultBaseURL is the public mock REST backend.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// DefaultTimeout bounds a single request when the caller's context has no
// deadline of its own.
const DefaultTimeout = 15 * time.Second

const (
	postsPath    = "/posts"
	maxErrorBody = 512
)

// Client issues CRUD requests against the posts resource.
// Safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use the
// httptest server's client).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the given base URL. An empty base selects
// DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "blogdesk",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// List fetches the full posts collection.
func (c *Client) List(ctx context.Context) ([]blog.Post, error) {
	var posts []blog.Post
	if err := c.do(ctx, http.MethodGet, postsPath, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	return posts, nil
}

// Get fetches a single post.
func (c *Client) Get(ctx context.Context, id int) (blog.Post, error) {
	var p blog.Post
	err := c.do(ctx, http.MethodGet, postPath(id), nil, &p)
	return p, err
}

// Create sends a draft and returns the created post with its server id.
func (c *Client) Create(ctx context.Context, d blog.Draft) (blog.Post, error) {
	var p blog.Post
	err := c.do(ctx, http.MethodPost, postsPath, d, &p)
	return p, err
}

// Update sends the full post keyed by its id and returns the backend's copy.
func (c *Client) Update(ctx context.Context, p blog.Post) (blog.Post, error) {
	var out blog.Post
	err := c.do(ctx, http.MethodPut, postPath(p.ID), p, &out)
	return out, err
}

// Delete removes a post. The response body is ignored.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, postPath(id), nil, nil)
}

func postPath(id int) string {
	return postsPath + "/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	target := c.base.String() + path

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("request failed", "method", method, "url", target, "error", err)
		return &Error{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("request done",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
