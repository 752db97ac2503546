package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/internal/tlsutil"
	"github.com/BaSui01/submind/orchestrator"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each discussion as a JSON string and indexes ids in
// sorted sets scored by start time. Suitable for distributed deployments.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore connects and pings Redis. A positive ttl expires archived
// discussions.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = tlsutil.ClientTLSConfig(host)
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "submind:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "redis_store")),
	}, nil
}

// discussionKey returns the Redis key for a discussion document
func (r *RedisStore) discussionKey(id string) string {
	return r.keyPrefix + "discussion:" + id
}

// allKey returns the Redis key of the index of all discussions
func (r *RedisStore) allKey() string {
	return r.keyPrefix + "discussions"
}

// stateKey returns the Redis key of a per-state index
func (r *RedisStore) stateKey(state orchestrator.State) string {
	return r.keyPrefix + "state:" + string(state)
}

func (r *RedisStore) Save(ctx context.Context, s *orchestrator.Summary) error {
	if err := validate(s); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal discussion: %w", err)
	}

	old, err := r.Get(ctx, s.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	score := float64(s.StartedAt.UnixNano())
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.discussionKey(s.ID), data, r.ttl)
	if old != nil && old.State != s.State {
		pipe.ZRem(ctx, r.stateKey(old.State), s.ID)
	}
	pipe.ZAdd(ctx, r.allKey(), redis.Z{Score: score, Member: s.ID})
	pipe.ZAdd(ctx, r.stateKey(s.State), redis.Z{Score: score, Member: s.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (*orchestrator.Summary, error) {
	data, err := r.client.Get(ctx, r.discussionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s orchestrator.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal discussion %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) List(ctx context.Context, opts ListOptions) ([]*orchestrator.Summary, error) {
	index := r.allKey()
	if opts.State != "" {
		index = r.stateKey(opts.State)
	}
	start := int64(max(opts.Offset, 0))
	ids, err := r.client.ZRevRange(ctx, index, start, start+int64(opts.limit())-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*orchestrator.Summary, 0, len(ids))
	var expired []any
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.Messages = nil
		out = append(out, s)
	}
	if len(expired) > 0 {
		// Documents expired through TTL; drop their index entries.
		pipe := r.client.Pipeline()
		pipe.ZRem(ctx, r.allKey(), expired...)
		if opts.State != "" {
			pipe.ZRem(ctx, index, expired...)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("failed to prune expired index entries", zap.Error(err))
		}
	}
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.discussionKey(id))
	pipe.ZRem(ctx, r.allKey(), id)
	pipe.ZRem(ctx, r.stateKey(s.State), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
