// Package ratelimit implements the per-organisation sliding-window span
// ingestion quota described in spec.md section 4.2.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "rate_limit:span:"
	window    = time.Hour
	keyExpiry = 2 * time.Hour
)

// Result is the outcome of a Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a Redis-backed sliding-window counter, one sorted set per
// organisation keyed by "rate_limit:span:<orgId>", entries scored by
// insertion time in epoch milliseconds.
type Limiter struct {
	client *redis.Client
	log    *slog.Logger
}

// NewLimiter wraps an existing Redis client. log may be nil, in which case
// slog.Default() is used.
func NewLimiter(client *redis.Client, log *slog.Logger) *Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &Limiter{client: client, log: log}
}

// Check evicts entries older than now-1h, counts the remainder, and reports
// whether orgID is within limit. Per spec.md section 4.2 policy, a Redis
// failure is not propagated as an error: it fails open (nil result) so that
// ingestion availability is prioritised over quota precision.
func (l *Limiter) Check(ctx context.Context, orgID string, limit int) *Result {
	key := keyPrefix + orgID
	now := time.Now()
	cutoff := now.Add(-window)

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff.UnixMilli())).Err(); err != nil {
		l.log.Warn("rate limiter: redis unavailable, failing open", "organisation", orgID, "error", err)
		return nil
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		l.log.Warn("rate limiter: redis unavailable, failing open", "organisation", orgID, "error", err)
		return nil
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	if count > 0 {
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) == 1 {
			resetAt = time.UnixMilli(int64(oldest[0].Score)).Add(window)
		}
	}

	return &Result{
		Allowed:   int(count) < limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Record inserts n timestamped entries for orgID and refreshes the key's
// 2-hour expiry. Member names carry a disambiguating suffix so that
// concurrent Record calls within the same millisecond don't collide
// (spec.md section 4.2: "suffixes so concurrent inserts collide only at
// second-precision").
func (l *Limiter) Record(ctx context.Context, orgID string, n int) error {
	if n <= 0 {
		return nil
	}
	key := keyPrefix + orgID
	now := time.Now()
	score := float64(now.UnixMilli())

	members := make([]redis.Z, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, redis.Z{
			Score:  score,
			Member: fmt.Sprintf("%d-%d", now.Unix(), i),
		})
	}

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.Expire(ctx, key, keyExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit: record: %w", err)
	}
	return nil
}
