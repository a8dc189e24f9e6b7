// Package cache holds short-lived read caches in front of the user store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/accessai/internal/model"
)

// Generation identifies the cache contents a page was read against. Set
// stores under the generation Get returned, so a page built from a database
// read that raced an Invalidate is never served afterwards.
type Generation int64

// Leaderboard caches rendered leaderboard pages.
//
// Get misses are (nil, gen, nil); errors are reserved for a failing backend,
// and callers treat both the same way: fall through to the database.
type Leaderboard interface {
	Get(ctx context.Context, page, limit int) (*model.LeaderboardPage, Generation, error)
	Set(ctx context.Context, gen Generation, page, limit int, lb *model.LeaderboardPage) error
	// Invalidate discards every cached page. Called after any points change.
	Invalidate(ctx context.Context) error
}

// Nop never caches.
type Nop struct{}

func (Nop) Get(context.Context, int, int) (*model.LeaderboardPage, Generation, error) {
	return nil, 0, nil
}
func (Nop) Set(context.Context, Generation, int, int, *model.LeaderboardPage) error { return nil }
func (Nop) Invalidate(context.Context) error                                        { return nil }

// RedisLeaderboard stores each page as JSON under a key that embeds a
// generation number. Invalidate bumps the generation, so stale pages are
// never read again and simply expire; no key scanning is needed.
type RedisLeaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Leaderboard = (*RedisLeaderboard)(nil)

const generationKey = "leaderboard:generation"

func NewRedisLeaderboard(client *redis.Client, ttl time.Duration) *RedisLeaderboard {
	return &RedisLeaderboard{client: client, ttl: ttl}
}

func (c *RedisLeaderboard) generation(ctx context.Context) (Generation, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("cache: reading leaderboard generation: %w", err)
	}
	return Generation(gen), nil
}

func pageKey(gen Generation, page, limit int) string {
	return fmt.Sprintf("leaderboard:%d:%d:%d", gen, page, limit)
}

func (c *RedisLeaderboard) Get(ctx context.Context, page, limit int) (*model.LeaderboardPage, Generation, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.client.Get(ctx, pageKey(gen, page, limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, fmt.Errorf("cache: reading leaderboard page: %w", err)
	}

	var lb model.LeaderboardPage
	if err := json.Unmarshal(raw, &lb); err != nil {
		return nil, gen, fmt.Errorf("cache: decoding leaderboard page: %w", err)
	}
	return &lb, gen, nil
}

// Set writes under gen even if it is no longer current; such a page is
// unreachable and expires with the TTL.
func (c *RedisLeaderboard) Set(ctx context.Context, gen Generation, page, limit int, lb *model.LeaderboardPage) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("cache: encoding leaderboard page: %w", err)
	}
	if err := c.client.Set(ctx, pageKey(gen, page, limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: writing leaderboard page: %w", err)
	}
	return nil
}

func (c *RedisLeaderboard) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("cache: invalidating leaderboard: %w", err)
	}
	return nil
}
