package cache

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates the shared redis client for the service.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping verifies the connection before the service starts serving.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
