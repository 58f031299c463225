package cli

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogdesk/internal/blog"
)

func TestPostsImport(t *testing.T) {
	env := newCLIEnv(t, 0)
	env.login()

	file := env.path("drafts.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- title: First import
  body: the first imported body
- title: Second import
  body: the second imported body
- title: Third import
  body: the third imported body
`), 0o644))

	out, err := env.run("posts", "import", file)
	require.NoError(t, err)
	assert.Equal(t, "Imported 3 posts\n", out)
	assert.Equal(t, 3, env.backend.Requests(http.MethodPost))
}

func TestPostsImport_InvalidEntriesSendNothing(t *testing.T) {
	env := newCLIEnv(t, 0)
	env.login()

	file := env.path("drafts.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- title: Fine title
  body: a perfectly fine body
- title: no
  body: a perfectly fine body
- title: Another
  body: short
`), 0o644))

	out, err := env.run("posts", "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 posts are invalid")
	assert.Equal(t, "posts[1]: "+blog.MsgTitleTooShort+"\nposts[2]: "+blog.MsgBodyTooShort+"\n", out)
	assert.Zero(t, env.backend.Requests(http.MethodPost))
}

func TestPostsImport_BadFile(t *testing.T) {
	env := newCLIEnv(t, 0)
	env.login()

	_, err := env.run("posts", "import", env.path("missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	empty := env.path("empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = env.run("posts", "import", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no posts in file")
}

func TestPostsExport_RoundTrip(t *testing.T) {
	env := newCLIEnv(t, 25)
	env.login()

	tests := []struct {
		name  string
		file  string
		pages string
		want  int
	}{
		{"all pages", "posts.yaml", "0", 25},
		{"compressed", "posts.yaml.zst", "0", 25},
		{"two pages", "two.yaml.zst", "2", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := env.path(tt.file)
			_, err := env.run("posts", "export", path, "--pages", tt.pages)
			require.NoError(t, err)

			drafts, err := readDrafts(path)
			require.NoError(t, err)
			require.Len(t, drafts, tt.want)
			assert.Equal(t, blog.Draft{Title: "post 1", Body: "body of post 1", UserID: 1}, drafts[0])
		})
	}

	plain, err := os.ReadFile(env.path("posts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(plain), "title: post 25")

	compressed, err := os.ReadFile(env.path("posts.yaml.zst"))
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(plain))
}

func TestPostsExport_JSON(t *testing.T) {
	env := newCLIEnv(t, 3)
	env.login()

	out, err := env.run("posts", "export", env.path("p.yaml"), "--format", "json")
	require.NoError(t, err)

	resp := decode[TransferResult](t, out)
	assert.Equal(t, 3, resp.Data.Posts)
	assert.Equal(t, env.path("p.yaml"), resp.Data.File)
}
