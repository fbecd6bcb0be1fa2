package discovery

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// URLCollector is the visited set of a crawl. The in-memory set is the session's
// source of truth; when a Redis client is configured every URL is mirrored into a
// Redis set so other tools can watch the crawl.
type URLCollector struct {
	redisClient *redis.Client
	redisKey    string
	mu          sync.RWMutex
	memoryCache map[string]struct{}
	crawledURLs []string
}

// NewURLCollector creates a new URLCollector instance. redisClient may be nil.
func NewURLCollector(redisClient *redis.Client, redisKey string) *URLCollector {
	return &URLCollector{
		redisClient: redisClient,
		redisKey:    redisKey,
		memoryCache: make(map[string]struct{}),
		crawledURLs: make([]string, 0),
	}
}

// Reset forgets every collected URL, including the Redis mirror, so a new crawl
// starts from an empty visited set.
func (c *URLCollector) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]struct{})
	c.crawledURLs = make([]string, 0)

	if c.redisClient != nil {
		if err := c.redisClient.Del(ctx, c.redisKey).Err(); err != nil {
			log.Warn().Err(err).Str("key", c.redisKey).Msg("Failed to clear visited set in Redis")
		}
	}
}

// Add records url as visited. It returns true if the URL was new.
func (c *URLCollector) Add(ctx context.Context, url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.memoryCache[url]; exists {
		return false
	}
	c.memoryCache[url] = struct{}{}
	c.crawledURLs = append(c.crawledURLs, url)

	if c.redisClient != nil {
		if err := c.redisClient.SAdd(ctx, c.redisKey, url).Err(); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to add URL to Redis, keeping it in memory only")
		}
	}
	return true
}

// Has checks if a URL has already been collected.
func (c *URLCollector) Has(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.memoryCache[url]
	return exists
}

// Len returns the number of collected URLs.
func (c *URLCollector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.crawledURLs)
}

// GetCrawledURLs returns the collected URLs in the order they were added.
func (c *URLCollector) GetCrawledURLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	urls := make([]string, len(c.crawledURLs))
	copy(urls, c.crawledURLs)
	return urls
}
