package provider

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/db/redis"
	"github.com/Digital-Creators-Team/arcade-client/db/sqlite"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// MemoryStore keeps values for the lifetime of the process
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// RedisStore persists values in Redis without expiry
type RedisStore struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore creates a store over an open Redis client. Keys are
// namespaced under prefix.
func NewRedisStore(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, found, err := s.redis.Get(ctx, s.prefix+key)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrStorage, "failed to read stored value")
	}
	return v, found, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, s.prefix+key, value, 0); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to write stored value")
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.redis.Delete(ctx, s.prefix+key); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to remove stored value")
	}
	return nil
}

// SQLiteStore persists values in a local SQLite file
type SQLiteStore struct {
	db *sqlite.Client
}

// NewSQLiteStore creates a store over an open SQLite client
func NewSQLiteStore(db *sqlite.Client) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, found, err := s.db.Get(ctx, key)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrStorage, "failed to read stored value")
	}
	return v, found, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if err := s.db.Set(ctx, key, value); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to write stored value")
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if err := s.db.Delete(ctx, key); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to remove stored value")
	}
	return nil
}

// NewStore opens the store selected by cfg.Storage. The returned close
// function releases the underlying connection.
func NewStore(cfg *config.Config, logger zerolog.Logger) (providers.Store, func() error, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory, "":
		return NewMemoryStore(), func() error { return nil }, nil
	case config.StorageRedis:
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrStorage, "failed to open redis store")
		}
		return NewRedisStore(client, "arcade:", logger), client.Close, nil
	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrStorage, "failed to open sqlite store")
		}
		return NewSQLiteStore(db), db.Close, nil
	default:
		return nil, nil, errors.NewWithDebug(errors.ErrConfig, "unknown storage driver", cfg.Storage.Driver)
	}
}
