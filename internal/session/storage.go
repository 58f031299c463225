package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/blogdesk/internal/store"
)

var (
	// ErrInvalidConfig is returned when a driver is missing a required option.
	ErrInvalidConfig = errors.New("session: invalid storage configuration")
	// ErrInvalidStorageType is returned for an unknown driver name.
	ErrInvalidStorageType = errors.New("session: invalid storage type")
)

// Storage is a string key-value store that persists session state.
type Storage interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the driver.
	Close() error
}

// StorageType names a storage driver.
type StorageType string

const (
	StorageTypeMemory StorageType = "memory"
	StorageTypeSQLite StorageType = "sqlite"
	StorageTypeRedis  StorageType = "redis"
)

// DefaultRedisPrefix namespaces every key the redis driver writes.
const DefaultRedisPrefix = "blogdesk:"

// StorageOption configures NewStorage.
type StorageOption func(*storageConfig)

type storageConfig struct {
	store       *store.Store
	ownStore    bool
	redisClient redis.UniversalClient
	redisPrefix string
}

// WithStore supplies the SQLite database for the sqlite driver. The caller
// keeps ownership and must close it.
func WithStore(s *store.Store) StorageOption {
	return func(c *storageConfig) {
		c.store = s
		c.ownStore = false
	}
}

// WithOwnedStore is WithStore, but closing the storage also closes s.
func WithOwnedStore(s *store.Store) StorageOption {
	return func(c *storageConfig) {
		c.store = s
		c.ownStore = true
	}
}

// WithRedisClient supplies the client for the redis driver.
func WithRedisClient(client redis.UniversalClient) StorageOption {
	return func(c *storageConfig) {
		c.redisClient = client
	}
}

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) StorageOption {
	return func(c *storageConfig) {
		c.redisPrefix = prefix
	}
}

// NewStorage creates a Storage for the given driver.
// The sqlite driver requires WithStore; the redis driver requires
// WithRedisClient.
func NewStorage(storageType StorageType, opts ...StorageOption) (Storage, error) {
	config := &storageConfig{redisPrefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(config)
	}

	switch storageType {
	case StorageTypeMemory:
		return NewMemoryStorage(), nil

	case StorageTypeSQLite:
		if config.store == nil {
			return nil, ErrInvalidConfig
		}
		return &sqliteStorage{store: config.store, owned: config.ownStore}, nil

	case StorageTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStorage{client: config.redisClient, prefix: config.redisPrefix}, nil

	default:
		return nil, ErrInvalidStorageType
	}
}
