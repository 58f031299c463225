package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/blogstore"
)

// maxParallel bounds concurrent backend calls for bulk commands.
const maxParallel = 4

// NewPostsCommand creates the posts command group. Every subcommand
// requires a signed-in session.
func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List and manage posts",
		Long: `List and manage posts.

All posts commands require a signed-in session (see "blogdesk login").
Drafts are validated locally before anything is sent: titles need at
least 3 characters and bodies at least 10.`,
	}

	cmd.AddCommand(newPostsListCommand(rootOpts))
	cmd.AddCommand(newPostsShowCommand(rootOpts))
	cmd.AddCommand(newPostsCreateCommand(rootOpts))
	cmd.AddCommand(newPostsEditCommand(rootOpts))
	cmd.AddCommand(newPostsDeleteCommand(rootOpts))
	cmd.AddCommand(newPostsImportCommand(rootOpts))
	cmd.AddCommand(newPostsExportCommand(rootOpts))

	return cmd
}

// ListResult is the JSON payload of posts list.
type ListResult struct {
	Posts   []blog.Post `json:"posts"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
}

func newPostsListCommand(rootOpts *RootOptions) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts a page at a time",
		Long: `Fetch the first page of posts, then up to --pages - 1 more pages
while more are available.

Examples:
  blogdesk posts list
  blogdesk posts list --pages 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return NewExitError(ExitCommandError, "--pages must be at least 1")
			}
			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				st, err := fetchPages(ctx, a, bs, pages)
				if err != nil {
					return err
				}

				if a.out.JSON() {
					return a.out.Success(ListResult{Posts: st.Posts, Page: st.CurrentPage, HasMore: st.HasMore})
				}
				writePostTable(a.out.Writer, st.Posts)
				if st.HasMore {
					a.out.Printf("\nShowing %d posts. More available: use --pages %d\n", len(st.Posts), st.CurrentPage+1)
				} else if len(st.Posts) > 0 {
					a.out.Printf("\nShowing %d posts. No more posts.\n", len(st.Posts))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

// fetchPages loads the first page and then up to pages-1 following pages
// while more are available. pages <= 0 loads everything.
func fetchPages(ctx context.Context, a *app, bs *blogstore.Store, pages int) (blogstore.State, error) {
	st, err := bs.FetchFirstPage(ctx)
	if err != nil {
		return st, a.fail("fetch posts", err)
	}
	a.out.VerboseLog("page 1: %d posts, has more: %t", len(st.Posts), st.HasMore)

	for n := 1; st.HasMore && (pages <= 0 || n < pages); n++ {
		st, err = bs.FetchNextPage(ctx)
		if err != nil {
			return st, a.fail("fetch next page", err)
		}
		a.out.VerboseLog("page %d: %d posts, has more: %t", n+1, len(st.Posts), st.HasMore)
	}
	return st, nil
}

func writePostTable(w io.Writer, posts []blog.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet.")
		return
	}
	fmt.Fprintf(w, "%5s  %s\n", "ID", "TITLE")
	for _, p := range posts {
		fmt.Fprintf(w, "%5d  %s\n", p.ID, truncate(p.Title, 60))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid post id %q", arg))
	}
	return id, nil
}

// ShowResult is the JSON payload of posts show.
type ShowResult struct {
	blog.Post
	HTML string `json:"html,omitempty"`
}

func newPostsShowCommand(rootOpts *RootOptions) *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post",
		Long: `Show one post. With --html the body is rendered from Markdown.

Example:
  blogdesk posts show 7 --html`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *app) error {
				p, err := a.client.Get(ctx, id)
				if err != nil {
					return a.fail(fmt.Sprintf("get post %d", id), err)
				}

				result := ShowResult{Post: p}
				if html {
					if result.HTML, err = blog.RenderHTML(p.Body); err != nil {
						return a.out.Fail(ExitFailure, CodeBackend, "render post", err, nil)
					}
				}

				if a.out.JSON() {
					return a.out.Success(result)
				}
				a.out.Printf("#%d %s\nby user %d\n\n", p.ID, p.Title, p.UserID)
				if html {
					a.out.Printf("%s", result.HTML)
				} else {
					a.out.Printf("%s\n", p.Body)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "render the body as HTML")
	return cmd
}

func newPostsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var draft blog.Draft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Long: `Create a post. The new post is shown first in the list.

Example:
  blogdesk posts create --title "Hello" --body "My first post body"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				draft.UserID = blog.DefaultUserID
				p, err := bs.CreatePost(ctx, draft)
				if err != nil {
					return a.fail("create post", err)
				}
				if a.out.JSON() {
					return a.out.Success(p)
				}
				a.out.Printf("Created post #%d: %s\n", p.ID, p.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&draft.Title, "title", "", "post title")
	cmd.Flags().StringVar(&draft.Body, "body", "", "post body")
	return cmd
}

func newPostsEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a post",
		Long: `Edit a post. Fields not given keep their current values.

Example:
  blogdesk posts edit 7 --title "A better title"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			changeTitle := cmd.Flags().Changed("title")
			changeBody := cmd.Flags().Changed("body")
			if !changeTitle && !changeBody {
				return NewExitError(ExitCommandError, "nothing to change: pass --title and/or --body")
			}

			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				current, err := a.client.Get(ctx, id)
				if err != nil {
					return a.fail(fmt.Sprintf("get post %d", id), err)
				}

				edited := current
				if changeTitle {
					edited.Title = title
				}
				if changeBody {
					edited.Body = body
				}

				p, err := bs.UpdatePost(ctx, edited)
				if err != nil {
					return a.fail(fmt.Sprintf("update post %d", id), err)
				}
				if a.out.JSON() {
					return a.out.Success(p)
				}
				a.out.Printf("Updated post #%d: %s\n", p.ID, p.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	return cmd
}

// DeleteResult is the JSON payload of posts delete.
type DeleteResult struct {
	Deleted   []int `json:"deleted"`
	Cancelled bool  `json:"cancelled,omitempty"`
}

func newPostsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete posts",
		Long: `Delete one or more posts. Asks for confirmation unless --yes is
given. Deletion cannot be undone.

Examples:
  blogdesk posts delete 7
  blogdesk posts delete 7 8 9 --yes`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}

			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				if !yes && !confirm(cmd.InOrStdin(), a.out.errWriter(), ids) {
					if a.out.JSON() {
						return a.out.Success(DeleteResult{Deleted: []int{}, Cancelled: true})
					}
					a.out.Printf("Cancelled\n")
					return nil
				}

				deleted, err := deletePosts(ctx, bs, ids)
				if a.out.JSON() && err == nil {
					return a.out.Success(DeleteResult{Deleted: deleted})
				}
				for _, id := range deleted {
					a.out.Printf("Deleted post #%d\n", id)
				}
				if err != nil {
					return a.fail("delete posts", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks before a destructive action. Only "y" or "yes" proceeds.
func confirm(in io.Reader, prompt io.Writer, ids []int) bool {
	fmt.Fprintf(prompt, "Delete %d post(s) %v? This cannot be undone. [y/N]: ", len(ids), ids)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// deletePosts deletes ids concurrently. Every id is attempted; the ids
// that succeeded are returned sorted alongside the joined failures.
func deletePosts(ctx context.Context, bs *blogstore.Store, ids []int) ([]int, error) {
	var mu sync.Mutex
	deleted := make([]int, 0, len(ids))

	p := pool.New().WithMaxGoroutines(maxParallel).WithContext(ctx)
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			if err := bs.DeletePost(ctx, id); err != nil {
				return err
			}
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			return nil
		})
	}
	err := p.Wait()

	slices.Sort(deleted)
	return deleted, err
}
