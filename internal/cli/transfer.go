package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/blogstore"
)

// Files ending in this suffix are zstd-compressed.
const zstdSuffix = ".zst"

// TransferResult is the JSON payload of posts import and export.
type TransferResult struct {
	File  string `json:"file"`
	Posts int    `json:"posts"`
}

func newPostsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create posts from a YAML file",
		Long: `Create every post listed in a YAML file (a list of title/body
entries, as written by "posts export"). Files ending in .zst are
decompressed first.

Every entry is validated before anything is sent; one invalid entry
stops the whole import.

Example:
  blogdesk posts import drafts.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := readDrafts(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read "+args[0], err)
			}

			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				if invalid := validateDrafts(drafts); len(invalid) > 0 {
					for _, key := range slices.Sorted(maps.Keys(invalid)) {
						a.out.Printf("%s: %s\n", key, invalid[key])
					}
					return a.out.Fail(ExitFailure, CodeValidation,
						fmt.Sprintf("%d of %d posts are invalid", len(invalid), len(drafts)), nil, invalid)
				}

				created, err := createPosts(ctx, bs, drafts)
				if err != nil {
					a.out.Printf("Imported %d of %d posts\n", len(created), len(drafts))
					return a.fail("import posts", err)
				}
				if a.out.JSON() {
					return a.out.Success(TransferResult{File: args[0], Posts: len(created)})
				}
				a.out.Printf("Imported %d posts\n", len(created))
				return nil
			})
		},
	}
}

func newPostsExportCommand(rootOpts *RootOptions) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write posts to a YAML file",
		Long: `Write posts to a YAML file. A name ending in .zst is written
zstd-compressed. By default every page is exported.

Examples:
  blogdesk posts export posts.yaml
  blogdesk posts export posts.yaml.zst --pages 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(ctx context.Context, a *app, bs *blogstore.Store) error {
				st, err := fetchPages(ctx, a, bs, pages)
				if err != nil {
					return err
				}
				if err := writePosts(args[0], st.Posts); err != nil {
					return WrapExitError(ExitCommandError, "failed to write "+args[0], err)
				}
				if a.out.JSON() {
					return a.out.Success(TransferResult{File: args[0], Posts: len(st.Posts)})
				}
				a.out.Printf("Exported %d posts to %s\n", len(st.Posts), args[0])
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 0, "number of pages to export (0 = all)")
	return cmd
}

// validateDrafts returns the messages of every invalid draft keyed by its
// position in the file.
func validateDrafts(drafts []blog.Draft) map[string]string {
	invalid := make(map[string]string)
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			invalid[fmt.Sprintf("posts[%d]", i)] = err.Error()
		}
	}
	return invalid
}

// createPosts creates drafts concurrently and returns the posts that were
// created. Every draft is attempted.
func createPosts(ctx context.Context, bs *blogstore.Store, drafts []blog.Draft) ([]blog.Post, error) {
	p := pool.NewWithResults[blog.Post]().WithMaxGoroutines(maxParallel).WithContext(ctx)
	for _, d := range drafts {
		p.Go(func(ctx context.Context) (blog.Post, error) {
			return bs.CreatePost(ctx, d)
		})
	}
	return p.Wait()
}

func readDrafts(path string) ([]blog.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, zstdSuffix) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}

	var drafts []blog.Draft
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no posts in file")
	}
	return drafts, nil
}

func writePosts(path string, posts []blog.Post) error {
	if posts == nil {
		posts = []blog.Post{}
	}
	data, err := yaml.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode posts: %w", err)
	}

	if strings.HasSuffix(path, zstdSuffix) {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return fmt.Errorf("create encoder: %w", err)
		}
		data = enc.EncodeAll(data, make([]byte, 0, len(data)))
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close encoder: %w", err)
		}
	}

	return os.WriteFile(path, data, 0o644)
}
