package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedis creates and validates a go-redis client connection
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// ReportCache keeps upstream report bodies in Redis. Errors are logged and
// treated as misses so a cache outage never blocks a dashboard.
type ReportCache struct {
	rdb *redis.Client
}

// NewReportCache wraps a Redis client
func NewReportCache(rdb *redis.Client) *ReportCache {
	return &ReportCache{rdb: rdb}
}

// Get returns a cached body
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		}
		return nil, false
	}
	return b, true
}

// Set stores a body, best effort
func (c *ReportCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

// Ping checks connectivity for the health endpoint
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
