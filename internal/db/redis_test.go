package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rs := &RedisStore{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(rs.Close)
	return rs, mr
}

func TestSubmissionCounters(t *testing.T) {
	rs, _ := setupTestRedis(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)

	n, err := rs.CountSubmissionsToday(ctx, "fp", "fp-1", now)
	if err != nil {
		t.Fatalf("CountSubmissionsToday failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected zero for fresh identity, got %d", n)
	}

	if err := rs.IncrementSubmission(ctx, "fp", "fp-1", now); err != nil {
		t.Fatalf("IncrementSubmission failed: %v", err)
	}
	if err := rs.IncrementSubmission(ctx, "fp", "fp-1", now); err != nil {
		t.Fatalf("IncrementSubmission failed: %v", err)
	}

	n, err = rs.CountSubmissionsToday(ctx, "fp", "fp-1", now)
	if err != nil {
		t.Fatalf("CountSubmissionsToday failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2, got %d", n)
	}

	// Different kind, same value: independent counter.
	n, err = rs.CountSubmissionsToday(ctx, "ip", "fp-1", now)
	if err != nil {
		t.Fatalf("CountSubmissionsToday failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected kinds to be independent, got %d", n)
	}
}

func TestSubmissionCounterExpiresAtEndOfDay(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	mr.SetTime(now)

	if err := rs.IncrementSubmission(ctx, "ip", "203.0.113.1", now); err != nil {
		t.Fatalf("IncrementSubmission failed: %v", err)
	}

	key := submissionKey("ip", "203.0.113.1", now)
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("Expected the counter to expire at midnight UTC, got TTL %v", ttl)
	}
}

func TestSubmissionCountersRollOverAtMidnight(t *testing.T) {
	rs, _ := setupTestRedis(t)
	ctx := context.Background()
	today := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tomorrow := today.Add(24 * time.Hour)

	if err := rs.IncrementSubmission(ctx, "fp", "fp-1", today); err != nil {
		t.Fatalf("IncrementSubmission failed: %v", err)
	}

	n, err := rs.CountSubmissionsToday(ctx, "fp", "fp-1", tomorrow)
	if err != nil {
		t.Fatalf("CountSubmissionsToday failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected next-day count to start at zero, got %d", n)
	}
}

func TestNilRedisStoreIsSafe(t *testing.T) {
	var rs *RedisStore
	ctx := context.Background()

	n, err := rs.CountSubmissionsToday(ctx, "fp", "fp-1", time.Now())
	if err != nil || n != 0 {
		t.Errorf("Nil store should report zero, got %d, %v", n, err)
	}
	if err := rs.IncrementSubmission(ctx, "fp", "fp-1", time.Now()); err != nil {
		t.Errorf("Nil store increment should be a no-op, got %v", err)
	}
	rs.Close()
}
