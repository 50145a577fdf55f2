package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

var _ Backend = (*RedisStore)(nil)

// RedisStore keeps the snapshot under a single redis key.
type RedisStore struct {
	rdb     *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisClient creates a client from the redis options and checks connectivity.
func NewRedisClient(ctx context.Context, opts *options.RedisOptions) (*redis.Client, error) {
	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisStore connects to redis.
func NewRedisStore(ctx context.Context, opts *options.RedisOptions) (*RedisStore, error) {
	rdb, err := NewRedisClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewRedisStoreWithClient(rdb, opts.SnapshotKey, opts.Timeout), nil
}

// NewRedisStoreWithClient wraps an existing client. Close closes the client.
func NewRedisStoreWithClient(rdb *redis.Client, key string, timeout time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, timeout: timeout}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (model.Snapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
