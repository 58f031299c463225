package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TokenPrefix marks tokens issued by the mock login.
const TokenPrefix = "mock-"

// ErrEmailRequired is returned by Login and RegisterUser for a blank email.
var ErrEmailRequired = errors.New("email is required")

// Manager owns the live Session and mirrors it to a Storage.
// Safe for concurrent use.
type Manager struct {
	storage Storage
	logger  *slog.Logger
	newID   func() string

	mu    sync.RWMutex
	state Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the uuid source used for mock tokens.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a Manager backed by storage. Call Init before reading
// Current.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		logger:  slog.Default(),
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init rehydrates the session from storage. A user value that does not
// decode is treated as absent.
func (m *Manager) Init(ctx context.Context) error {
	rawUser, hasUser, err := m.storage.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("load session user: %w", err)
	}
	token, _, err := m.storage.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}

	var user *User
	if hasUser && rawUser != "" && rawUser != "null" {
		var u User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			m.logger.Warn("ignoring unreadable session user", "error", err)
		} else {
			user = &u
		}
	}

	m.mu.Lock()
	m.state = Session{User: user, Token: token, IsAuthenticated: token != ""}
	m.mu.Unlock()

	m.logger.Debug("session loaded", "authenticated", token != "")
	return nil
}

// Current returns a copy of the live session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// LoginSuccess records a successful login and persists user and token.
func (m *Manager) LoginSuccess(ctx context.Context, user User, token string) error {
	next := Session{User: &user, Token: token, IsAuthenticated: token != ""}

	m.mu.Lock()
	m.state = next.clone()
	m.mu.Unlock()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := m.storage.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("persist session user: %w", err)
	}
	if err := m.storage.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}

	m.logger.Info("logged in", "email", user.Email)
	return nil
}

// Login performs the mock login: any non-blank email succeeds and receives
// a fresh "mock-" token. The password is not checked and registration
// records are not consulted.
func (m *Manager) Login(ctx context.Context, email string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, ErrEmailRequired
	}
	token := TokenPrefix + m.newID()
	if err := m.LoginSuccess(ctx, User{Email: email}, token); err != nil {
		return Session{}, err
	}
	return m.Current(), nil
}

// Logout clears the live session and removes the persisted user and token.
// Both deletes are attempted even if the first fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.state = Session{}
	m.mu.Unlock()

	var errs []error
	if err := m.storage.Delete(ctx, KeyUser); err != nil {
		errs = append(errs, fmt.Errorf("remove session user: %w", err))
	}
	if err := m.storage.Delete(ctx, KeyToken); err != nil {
		errs = append(errs, fmt.Errorf("remove session token: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	m.logger.Info("logged out")
	return nil
}

// RegisterUser appends a credential to the persisted registration list.
// Duplicate emails are appended as-is.
func (m *Manager) RegisterUser(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.readUsers(ctx)
	if err != nil {
		return err
	}
	users = append(users, Credential{Email: email, Password: password})

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := m.storage.Set(ctx, KeyUsers, string(data)); err != nil {
		return fmt.Errorf("persist users: %w", err)
	}

	m.logger.Info("registered user", "email", email, "registered", len(users))
	return nil
}

// Users returns the persisted registration records in insertion order.
func (m *Manager) Users(ctx context.Context) ([]Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readUsers(ctx)
}

// Close closes the underlying storage.
func (m *Manager) Close() error {
	return m.storage.Close()
}

func (m *Manager) readUsers(ctx context.Context) ([]Credential, error) {
	raw, ok, err := m.storage.Get(ctx, KeyUsers)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := []Credential{}
	if !ok || raw == "" || raw == "null" {
		return users, nil
	}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}
