package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const redisKeyPrefix = "solar:sample:"

// RedisBackend keeps cache entries in Redis, for deployments that already
// run one and want the cache shared without a relational store.
type RedisBackend struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, dbNum int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: redis ping")
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Get(ctx context.Context, fingerprint string) (float64, bool, error) {
	val, err := b.client.Get(ctx, redisKeyPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "cache: redis get")
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, eris.Wrapf(err, "cache: redis parse %q", val)
	}
	return f, true, nil
}

// Put stores the value with no expiry; the cache has no TTL semantics.
func (b *RedisBackend) Put(ctx context.Context, fingerprint string, value float64) error {
	err := b.client.Set(ctx, redisKeyPrefix+fingerprint,
		strconv.FormatFloat(value, 'f', -1, 64), 0).Err()
	return eris.Wrap(err, "cache: redis put")
}

// Clear deletes every key under the cache prefix.
func (b *RedisBackend) Clear(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return eris.Wrap(err, "cache: redis clear")
		}
	}
	return eris.Wrap(iter.Err(), "cache: redis scan")
}

func (b *RedisBackend) Count(ctx context.Context) (int64, error) {
	var n int64
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, eris.Wrap(err, "cache: redis count")
	}
	return n, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
