package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared by all gateway instances.
//
// Each key is a counter created with "SET key 0 PX window NX" and then
// INCRemented; INCR keeps the TTL, which doubles as the window's reset time.
// All three commands run in one MULTI/EXEC so a key never exists without a TTL.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := r.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, r.window)
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	wait := ttl.Val()
	if wait <= 0 {
		wait = r.window
	}
	return decide(int(incr.Val()), r.limit, time.Now().Add(wait)), nil
}
