package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client backing the notification queue and the health
// endpoint. Blocking queue reads (BRPOP) manage their own deadlines, so the
// read timeout here only bounds the non-blocking commands.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with timeouts short enough that a dead redis fails the
// health check quickly instead of stalling requests.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     8,
	})
	return &Redis{Client: client}
}

// Healthy reports redis connectivity for the health endpoint.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.Client.Ping(pingCtx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
