// Package cache keeps upstream search pages in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryanbastic/go-repopager/internal/github"
	"github.com/ryanbastic/go-repopager/internal/metrics"
	"github.com/ryanbastic/go-repopager/internal/repo"
)

const searchKeyPrefix = "repopager:search"

// SearchCache is a github.Searcher that serves repeated page requests
// from Redis. Cache failures are logged and fall through to next.
type SearchCache struct {
	client *RedisClient
	next   github.Searcher
	ttl    time.Duration
	logger *slog.Logger
}

// NewSearchCache wraps next with a cache whose entries live for ttl.
func NewSearchCache(client *RedisClient, next github.Searcher, ttl time.Duration, logger *slog.Logger) *SearchCache {
	return &SearchCache{client: client, next: next, ttl: ttl, logger: logger}
}

// Search implements github.Searcher.
func (c *SearchCache) Search(ctx context.Context, query string, page, perPage int) ([]repo.Repo, error) {
	key := searchKey(query, page, perPage)

	if !github.CacheBypassed(ctx) {
		repos, err := c.get(ctx, key)
		switch {
		case err == nil:
			metrics.ObserveCacheLookup("hit")
			return repos, nil
		case errors.Is(err, redis.Nil):
			metrics.ObserveCacheLookup("miss")
		default:
			metrics.ObserveCacheLookup("error")
			c.logger.Warn("search cache read failed", "key", key, "error", err)
		}
	}

	repos, err := c.next.Search(ctx, query, page, perPage)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, key, repos); err != nil {
		c.logger.Warn("search cache write failed", "key", key, "error", err)
	}
	return repos, nil
}

func (c *SearchCache) get(ctx context.Context, key string) ([]repo.Repo, error) {
	b, err := c.client.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var repos []repo.Repo
	if err := json.Unmarshal(b, &repos); err != nil {
		return nil, fmt.Errorf("decode cached page: %w", err)
	}
	return repos, nil
}

func (c *SearchCache) set(ctx context.Context, key string, repos []repo.Repo) error {
	if repos == nil {
		repos = []repo.Repo{}
	}
	b, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return c.client.client.Set(ctx, key, b, c.ttl).Err()
}

func searchKey(query string, page, perPage int) string {
	return fmt.Sprintf("%s:%d:%d:%s", searchKeyPrefix, perPage, page, query)
}
