package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_Empty(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, err := env.run("trace")
	require.NoError(t, err)
	assert.Equal(t, "No operations recorded.\n", out)
}

func TestTrace_RecordsOperations(t *testing.T) {
	env := newCLIEnv(t, 15)
	env.login()

	_, err := env.run("posts", "list", "--pages", "2")
	require.NoError(t, err)
	_, err = env.run("posts", "create", "--title", "Hello", "--body", "first post body")
	require.NoError(t, err)

	out, err := env.run("trace", "--format", "json")
	require.NoError(t, err)

	resp := decode[TraceResult](t, out)
	ops := resp.Data.Operations
	require.Len(t, ops, 6)

	for i, op := range ops {
		assert.Equal(t, int64(i+1), op.Seq, "seq resumes across runs")
	}
	assert.Equal(t, "fetch_first", ops[0].Kind)
	assert.Equal(t, "fetch_next", ops[2].Kind)
	assert.Equal(t, "create", ops[5].Kind)
	assert.Equal(t, "fulfilled", ops[5].Phase)
	assert.Equal(t, TraceStats{Total: 6, Pending: 3, Fulfilled: 3}, resp.Data.Stats)

	out, err = env.run("trace", "--request", ops[2].RequestID, "--format", "json")
	require.NoError(t, err)
	byRequest := decode[TraceResult](t, out).Data.Operations
	require.Len(t, byRequest, 2)
	assert.Equal(t, "pending", byRequest[0].Phase)
	assert.Equal(t, "fulfilled", byRequest[1].Phase)

	out, err = env.run("trace", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[5] create      pending")
	assert.Contains(t, out, "[6] create      fulfilled")
	assert.NotContains(t, out, "fetch_first")
	assert.Contains(t, out, "2 rows: 1 pending, 1 fulfilled, 0 rejected, 0 superseded")
}

func TestTrace_RecordsRejection(t *testing.T) {
	env := newCLIEnv(t, 5)
	env.login()
	env.backend.Fail("POST", 500)

	_, err := env.run("posts", "create", "--title", "Hello", "--body", "first post body")
	require.Error(t, err)

	out, err := env.run("trace")
	require.NoError(t, err)
	assert.Contains(t, out, "create      rejected")
	assert.Contains(t, out, "error: POST "+env.backend.URL()+"/posts: request failed with status code 500")
}

func TestFormatDetail(t *testing.T) {
	assert.Equal(t, "{count=10, cursor=0, has_more=true}",
		formatDetail(map[string]any{"has_more": true, "cursor": 0, "count": 10}))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "req-1", truncateID("req-1"))
	assert.Equal(t, "0192f0c4...89abcdef", truncateID("0192f0c4-0000-7000-8000-0123456789abcdef"))
}
