// Package cache holds the short-lived coordination state kept outside
// Postgres: refresh leases and OAuth handshake records.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect builds a client from a redis:// URL or a bare host:port.
func Connect(ctx context.Context, redisURI string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURI, "redis://") || strings.HasPrefix(redisURI, "rediss://") {
		opt, err := redis.ParseURL(redisURI)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURI})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
