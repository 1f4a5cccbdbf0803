// Package rediscache shares key verifications between broker replicas.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/webpro/core"
)

const (
	DefaultPrefix = "webpro:verify:"
	opTimeout     = 2 * time.Second
	scanBatch     = 100
)

// Cache is a core.VerificationCache stored in Redis. Entries expire on
// the Redis side after the configured TTL.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ core.VerificationCache = (*Cache)(nil)

func New(client *redis.Client, c core.CacheConfig) *Cache {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, prefix: DefaultPrefix, ttl: ttl}
}

// Open parses a redis:// url and pings the server
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("rediscache: invalid url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rediscache: ping failed: %w", err)
	}
	return client, nil
}

func (c *Cache) key(keyHash string) string {
	return c.prefix + keyHash
}

func (c *Cache) Get(keyHash string) (*core.Verification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(keyHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrCacheNotFound
	}
	if err != nil {
		return nil, err
	}

	var v core.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		// unreadable entries are treated as misses and refetched
		return nil, core.ErrCacheNotFound
	}
	return &v, nil
}

func (c *Cache) Set(keyHash string, v *core.Verification) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.client.Set(ctx, c.key(keyHash), raw, c.ttl).Err()
}

func (c *Cache) Delete(keyHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.client.Del(ctx, c.key(keyHash)).Err()
}

// Clear removes every verification under the prefix. Other keys in the
// database are left alone.
func (c *Cache) Clear() error {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
