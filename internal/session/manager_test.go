package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	m := NewManager(storage, WithIDGenerator(func() string { return "0001" }))
	require.NoError(t, m.Init(context.Background()))
	return m, storage
}

func TestManager_InitEmpty(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Current()
	assert.Nil(t, s.User)
	assert.Empty(t, s.Token)
	assert.False(t, s.IsAuthenticated)
}

func TestManager_InitRehydrates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, KeyUser, `{"email":"ann@example.com","name":"Ann"}`))
	require.NoError(t, storage.Set(ctx, KeyToken, "mock-abc"))

	m := NewManager(storage)
	require.NoError(t, m.Init(ctx))

	s := m.Current()
	require.NotNil(t, s.User)
	assert.Equal(t, "ann@example.com", s.User.Email)
	assert.Equal(t, "Ann", s.User.Extra["name"])
	assert.Equal(t, "mock-abc", s.Token)
	assert.True(t, s.IsAuthenticated)
}

func TestManager_InitTokenWithoutUser(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, KeyToken, "mock-abc"))

	m := NewManager(storage)
	require.NoError(t, m.Init(ctx))

	s := m.Current()
	assert.Nil(t, s.User)
	assert.True(t, s.IsAuthenticated)
}

func TestManager_InitIgnoresUnreadableUser(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, KeyUser, `{not json`))

	m := NewManager(storage)
	require.NoError(t, m.Init(ctx))
	assert.Nil(t, m.Current().User)
}

func TestManager_LoginSuccessPersists(t *testing.T) {
	ctx := context.Background()
	m, storage := newTestManager(t)

	require.NoError(t, m.LoginSuccess(ctx, User{Email: "bob@example.com"}, "tok"))

	s := m.Current()
	require.NotNil(t, s.User)
	assert.Equal(t, "bob@example.com", s.User.Email)
	assert.True(t, s.IsAuthenticated)

	raw, ok, _ := storage.Get(ctx, KeyUser)
	assert.True(t, ok)
	assert.JSONEq(t, `{"email":"bob@example.com"}`, raw)

	tok, ok, _ := storage.Get(ctx, KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok", tok)

	// A second manager over the same storage sees the same session.
	other := NewManager(storage)
	require.NoError(t, other.Init(ctx))
	assert.Equal(t, s, other.Current())
}

func TestManager_Login(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	s, err := m.Login(ctx, "  carol@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", s.User.Email)
	assert.Equal(t, "mock-0001", s.Token)
	assert.True(t, s.IsAuthenticated)
}

func TestManager_LoginBlankEmail(t *testing.T) {
	m, storage := newTestManager(t)

	_, err := m.Login(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmailRequired)
	assert.Equal(t, 0, storage.Len())
}

func TestManager_LoginIgnoresRegistrations(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	require.NoError(t, m.RegisterUser(ctx, "dave@example.com", "secret"))

	s, err := m.Login(ctx, "someone-else@example.com")
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated)
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	m, storage := newTestManager(t)

	_, err := m.Login(ctx, "erin@example.com")
	require.NoError(t, err)
	require.NoError(t, m.RegisterUser(ctx, "erin@example.com", "pw"))

	require.NoError(t, m.Logout(ctx))

	s := m.Current()
	assert.Nil(t, s.User)
	assert.Empty(t, s.Token)
	assert.False(t, s.IsAuthenticated)

	_, ok, _ := storage.Get(ctx, KeyUser)
	assert.False(t, ok)
	_, ok, _ = storage.Get(ctx, KeyToken)
	assert.False(t, ok)

	// Registrations are not part of the session.
	_, ok, _ = storage.Get(ctx, KeyUsers)
	assert.True(t, ok)

	fresh := NewManager(storage)
	require.NoError(t, fresh.Init(ctx))
	assert.False(t, fresh.Current().IsAuthenticated)
}

func TestManager_RegisterUserAppends(t *testing.T) {
	ctx := context.Background()
	m, storage := newTestManager(t)

	require.NoError(t, m.RegisterUser(ctx, "a@example.com", "one"))
	require.NoError(t, m.RegisterUser(ctx, "b@example.com", "two"))
	require.NoError(t, m.RegisterUser(ctx, "a@example.com", "three"))

	users, err := m.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Credential{
		{Email: "a@example.com", Password: "one"},
		{Email: "b@example.com", Password: "two"},
		{Email: "a@example.com", Password: "three"},
	}, users)

	raw, _, _ := storage.Get(ctx, KeyUsers)
	assert.JSONEq(t, `[{"email":"a@example.com","password":"one"},{"email":"b@example.com","password":"two"},{"email":"a@example.com","password":"three"}]`, raw)
}

func TestManager_UsersEmpty(t *testing.T) {
	m, _ := newTestManager(t)

	users, err := m.Users(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestManager_CurrentIsCopy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	require.NoError(t, m.LoginSuccess(ctx, User{Email: "x@example.com", Extra: map[string]any{"k": "v"}}, "t"))

	s := m.Current()
	s.User.Email = "changed"
	s.User.Extra["k"] = "changed"

	again := m.Current()
	assert.Equal(t, "x@example.com", again.User.Email)
	assert.Equal(t, "v", again.User.Extra["k"])
}

type failingStorage struct {
	*MemoryStorage
	err error
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error { return f.err }
func (f *failingStorage) Delete(ctx context.Context, key string) error     { return f.err }

func TestManager_StorageErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	m := NewManager(&failingStorage{MemoryStorage: NewMemoryStorage(), err: boom})
	require.NoError(t, m.Init(ctx))

	err := m.LoginSuccess(ctx, User{Email: "f@example.com"}, "tok")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "persist session user")

	err = m.Logout(ctx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Current().IsAuthenticated, "state is cleared even when storage fails")

	assert.ErrorIs(t, m.RegisterUser(ctx, "f@example.com", "pw"), boom)
}
