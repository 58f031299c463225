package session

import (
	"context"

	"github.com/roach88/blogdesk/internal/store"
)

// sqliteStorage persists session keys in the kv table of the local database.
type sqliteStorage struct {
	store *store.Store
	owned bool
}

func (s *sqliteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.GetValue(ctx, key)
}

func (s *sqliteStorage) Set(ctx context.Context, key, value string) error {
	return s.store.PutValue(ctx, key, value)
}

func (s *sqliteStorage) Delete(ctx context.Context, key string) error {
	return s.store.DeleteValue(ctx, key)
}

func (s *sqliteStorage) Close() error {
	if !s.owned {
		return nil
	}
	return s.store.Close()
}
