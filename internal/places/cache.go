package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keySearch = "places:search:"

// Searcher is what handlers consume; Client and CachedSearcher both satisfy it.
type Searcher interface {
	Search(ctx context.Context, query string, lat, lng float64) ([]Place, error)
}

// CachedSearcher fronts a Searcher with a Redis result cache. Cache failures
// fall through to the upstream so a dead Redis only costs latency.
type CachedSearcher struct {
	next Searcher
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedSearcher wraps next with a Redis cache with the given TTL.
func NewCachedSearcher(next Searcher, rdb *redis.Client, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedSearcher{next: next, rdb: rdb, ttl: ttl}
}

// Search returns the cached result for this query and vicinity, or queries
// the upstream and caches what it returns.
func (c *CachedSearcher) Search(ctx context.Context, query string, lat, lng float64) ([]Place, error) {
	key := cacheKey(query, lat, lng)

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached []Place
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		slog.Warn("place cache read failed", "error", err)
	}

	results, err := c.next.Search(ctx, query, lat, lng)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("place cache write failed", "error", err)
		}
	}
	return results, nil
}

// cacheKey normalizes the query and rounds coordinates to ~100 m so nearby
// repeat searches share an entry.
func cacheKey(query string, lat, lng float64) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.Join(strings.Fields(q), " ")
	return fmt.Sprintf("%s%s:%.3f:%.3f", keySearch, q, lat, lng)
}
