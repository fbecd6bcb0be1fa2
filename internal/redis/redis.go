// Package redis builds the optional Redis connection used to mirror the crawl's
// visited set.
package redis

import (
	"context"
	"fmt"

	"formprobe/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client is a wrapper around the go-redis client.
type Client struct {
	*redis.Client
}

// NewClient parses a redis:// URL, connects and pings the server.
func NewClient(ctx context.Context, addr string) (*Client, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb}, nil
}

// FromConfig returns a connected client when Redis is enabled, or nil otherwise.
func FromConfig(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return NewClient(ctx, cfg.URL)
}

// Raw returns the underlying go-redis client; nil-safe.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
