package live

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"riskroute/internal/model"
)

// Cache stores live conditions with an explicit expiry per entry.
type Cache interface {
	Get(ctx context.Context, key string) (model.LiveConditions, bool)
	Set(ctx context.Context, key string, v model.LiveConditions, ttl time.Duration)
}

// MemoryCache is a process-local cache.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (model.LiveConditions, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return model.LiveConditions{}, false
	}
	lc, ok := v.(model.LiveConditions)
	return lc, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, v model.LiveConditions, ttl time.Duration) {
	m.c.Set(key, v, ttl)
}

// RedisCache shares entries across replicas as JSON with SET EX.
type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, log: logger}
}

func (r *RedisCache) Get(ctx context.Context, key string) (model.LiveConditions, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return model.LiveConditions{}, false
	}
	var lc model.LiveConditions
	if err := json.Unmarshal(b, &lc); err != nil {
		r.log.Warn("redis cache entry corrupt", zap.String("key", key), zap.Error(err))
		return model.LiveConditions{}, false
	}
	return lc, true
}

func (r *RedisCache) Set(ctx context.Context, key string, v model.LiveConditions, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("redis cache encode failed", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.log.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}
