package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsCacheDialTimeout = 5 * time.Second

// ConnectStatsCache dials the redis instance backing the page-stats cache.
// An empty URL means the cache is disabled and yields a nil client; the page
// service treats a nil client as cache-off and computes stats directly.
func ConnectStatsCache(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if options.PoolSize == 0 {
		// The cache issues a single GET or SET per stats request.
		options.PoolSize = 4
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), statsCacheDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("stats cache unreachable: %w", err)
	}

	return client, nil
}
