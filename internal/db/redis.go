package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps per-day submission counters so the rate limiter can
// short-circuit without a Postgres round trip. It is optional: callers must
// tolerate a nil store.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

func submissionKey(kind, value string, day time.Time) string {
	return fmt.Sprintf("sub:%s:%s:%s", kind, value, day.UTC().Format("2006-01-02"))
}

// CountSubmissionsToday returns the cached submission count for an identity
// (kind "fp" or "ip") on the UTC day containing now.
func (r *RedisStore) CountSubmissionsToday(ctx context.Context, kind, value string, now time.Time) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, nil
	}
	n, err := r.Client.Get(ctx, submissionKey(kind, value, now)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// IncrementSubmission bumps the daily counter for an identity. The key
// expires at the end of the current UTC day, matching the limiter window.
func (r *RedisStore) IncrementSubmission(ctx context.Context, kind, value string, now time.Time) error {
	if r == nil || r.Client == nil {
		return nil
	}
	key := submissionKey(kind, value, now)
	val, err := r.Client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if val == 1 {
		endOfDay := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		r.Client.ExpireAt(ctx, key, endOfDay)
	}
	return nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
