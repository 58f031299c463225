package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_PutGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutValue(ctx, "token", "abc"))

	v, ok, err := s.GetValue(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestKV_GetMissing(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.GetValue(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestKV_PutOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutValue(ctx, "user", `{"email":"a@x"}`))
	require.NoError(t, s.PutValue(ctx, "user", `{"email":"b@x"}`))

	v, _, err := s.GetValue(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"email":"b@x"}`, v)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, keys)
}

func TestKV_Delete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutValue(ctx, "token", "abc"))
	require.NoError(t, s.DeleteValue(ctx, "token"))
	require.NoError(t, s.DeleteValue(ctx, "token"), "deleting twice is not an error")

	_, ok, err := s.GetValue(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_Keys(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []string{"users", "token", "user"} {
		require.NoError(t, s.PutValue(ctx, k, "v"))
	}

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"token", "user", "users"}, keys)
}

func TestKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.PutValue(ctx, "token", "persisted"))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.GetValue(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}
