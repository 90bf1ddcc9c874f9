// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package rediscache provides an expiring cache kept in redis, so that every
// site instance sees the same entries and invalidations.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	// Error is a redis cache error.
	Error = errs.Class("rediscache")

	mon = monkit.Package()
)

// Open connects to the redis server at address, formatted as
// redis://host:port[?db=N&password=P], and verifies the connection.
func Open(ctx context.Context, address string) (_ *redis.Client, err error) {
	defer mon.Task()(&ctx)(&err)

	redisurl, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if redisurl.Scheme != "redis" {
		return nil, Error.New("not a redis:// formatted address")
	}
	if redisurl.Host == "" {
		return nil, Error.New("redis address is missing the host")
	}

	q := redisurl.Query()
	db := 0
	if v := q.Get("db"); v != "" {
		db, err = strconv.Atoi(v)
		if err != nil {
			return nil, Error.New("invalid db %q: %v", v, err)
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisurl.Host,
		Password: q.Get("password"),
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Combine(Error.New("ping failed: %v", err), client.Close())
	}
	return client, nil
}

// Options controls the key space and expiration of a cache.
type Options struct {
	// Prefix is prepended to every key.
	Prefix string
	// Expiration is how long an entry is kept. A non-positive value keeps
	// entries until they are deleted.
	Expiration time.Duration
}

// Cache stores JSON encoded values under prefixed keys.
type Cache[T any] struct {
	log    *zap.Logger
	client redis.Cmdable
	opts   Options
}

// New returns a cache over client.
func New[T any](log *zap.Logger, client redis.Cmdable, opts Options) *Cache[T] {
	return &Cache[T]{
		log:    log,
		client: client,
		opts:   opts,
	}
}

// Get returns the cached value of key, otherwise it calls load and stores
// the result. Errors of load are not cached. When redis is unavailable the
// value is loaded without caching.
func (cache *Cache[T]) Get(ctx context.Context, key string, load func() (T, error)) (value T, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := cache.client.Get(ctx, cache.opts.Prefix+key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &value); err == nil {
			mon.Event("rediscache_hit")
			return value, nil
		}
		cache.log.Warn("discarding undecodable cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		cache.log.Warn("cache read failed", zap.String("key", key), zap.Error(Error.Wrap(err)))
	}
	mon.Event("rediscache_miss")

	value, err = load()
	if err != nil {
		return value, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		return value, Error.Wrap(err)
	}

	expiration := cache.opts.Expiration
	if expiration < 0 {
		expiration = 0
	}
	if err := cache.client.Set(ctx, cache.opts.Prefix+key, data, expiration).Err(); err != nil {
		cache.log.Warn("cache write failed", zap.String("key", key), zap.Error(Error.Wrap(err)))
	}
	return value, nil
}

// Delete removes key.
func (cache *Cache[T]) Delete(ctx context.Context, key string) {
	if err := cache.client.Del(ctx, cache.opts.Prefix+key).Err(); err != nil {
		cache.log.Warn("cache delete failed", zap.String("key", key), zap.Error(Error.Wrap(err)))
	}
}
