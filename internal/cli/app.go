package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/blogdesk/internal/api"
	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/blogstore"
	"github.com/roach88/blogdesk/internal/config"
	"github.com/roach88/blogdesk/internal/paging"
	"github.com/roach88/blogdesk/internal/session"
	"github.com/roach88/blogdesk/internal/store"
)

// app is everything a command needs, opened once per invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.Store
	sessions *session.Manager
	client   *api.Client
	out      *OutputFormatter
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves configuration and opens the local database.
func loadConfig(opts *RootOptions) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(config.New(opts.ConfigFile))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return cfg, db, nil
}

// openApp loads config, opens storage and rehydrates the session. With
// requireLogin set it refuses to continue for a signed-out user.
func openApp(cmd *cobra.Command, opts *RootOptions, requireLogin bool) (*app, error) {
	ctx := cmd.Context()
	out := newFormatter(cmd, opts)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, db, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "file", cfg.File, "base_url", cfg.BaseURL, "storage", cfg.Storage)

	storage, err := openStorage(cfg, db)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open session storage", err)
	}

	sessions := session.NewManager(storage, session.WithLogger(logger))
	if err := sessions.Init(ctx); err != nil {
		sessions.Close()
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load session", err)
	}

	client, err := api.New(cfg.BaseURL, api.WithTimeout(cfg.Timeout))
	if err != nil {
		sessions.Close()
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create api client", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db, sessions: sessions, client: client, out: out}

	if requireLogin && !sessions.Current().IsAuthenticated {
		a.close()
		return nil, out.Fail(ExitCommandError, CodeAuth, `not logged in: run "blogdesk login --email <email>" first`, nil, nil)
	}
	return a, nil
}

// openStorage picks the session driver. The sqlite driver shares db and
// leaves closing it to the app.
func openStorage(cfg *config.Config, db *store.Store) (session.Storage, error) {
	switch t := session.StorageType(cfg.Storage); t {
	case session.StorageTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return session.NewStorage(t,
			session.WithRedisClient(client),
			session.WithRedisPrefix(cfg.RedisPrefix),
		)
	default:
		return session.NewStorage(t, session.WithStore(db))
	}
}

func (a *app) close() {
	if err := a.sessions.Close(); err != nil {
		a.logger.Error("error closing session storage", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// startStore runs a blog store journaling into the local database. The
// clock resumes after the last journaled seq. stop drains and waits.
func (a *app) startStore(ctx context.Context) (*blogstore.Store, func(), error) {
	last, err := a.db.LastSeq(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	bs := blogstore.New(
		paging.NewCollectionSource(a.client),
		a.client,
		blogstore.WithJournal(a.db),
		blogstore.WithClock(blogstore.NewClockAt(last)),
		blogstore.WithLogger(a.logger),
		blogstore.WithPageSize(a.cfg.PageSize),
	)

	go func() {
		if err := bs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("blog store stopped", "error", err)
		}
	}()

	stop := func() {
		bs.Stop()
		<-bs.Done()
	}
	return bs, stop, nil
}

// withApp opens the app, runs fn and closes everything.
func withApp(cmd *cobra.Command, opts *RootOptions, requireLogin bool, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts, requireLogin)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

// withStore is withApp plus a running blog store.
func withStore(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app, bs *blogstore.Store) error) error {
	return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
		bs, stop, err := a.startStore(ctx)
		if err != nil {
			return err
		}
		defer stop()
		return fn(ctx, a, bs)
	})
}

// fail maps a store or backend error to an exit error.
func (a *app) fail(action string, err error) error {
	var verr blog.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return a.out.Fail(ExitFailure, CodeValidation, action, err, err)
	case api.IsNotFound(err):
		return a.out.Fail(ExitFailure, CodeNotFound, action, err, nil)
	default:
		return a.out.Fail(ExitFailure, CodeBackend, action, err, nil)
	}
}
