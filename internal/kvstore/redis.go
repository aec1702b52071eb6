// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string

	// OpTimeout bounds each command. Zero means two seconds.
	OpTimeout time.Duration
}

// RedisBackend stores keys in redis under a namespace prefix.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisBackend connects to redis and verifies the connection with PING.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, DB: opts.DB})
	b := NewRedisBackendFromClient(client, opts.Prefix)
	if opts.OpTimeout > 0 {
		b.timeout = opts.OpTimeout
	}

	ctx, cancel := b.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", opts.Addr)
	}
	return b, nil
}

// NewRedisBackendFromClient wraps an existing client without pinging it.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, timeout: 2 * time.Second}
}

func (r *RedisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisBackend) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return v, true, nil
}

func (r *RedisBackend) Set(key string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return errors.Wrap(r.client.Set(ctx, r.prefix+key, value, 0).Err(), "redis set")
}

func (r *RedisBackend) Remove(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return errors.Wrap(r.client.Del(ctx, r.prefix+key).Err(), "redis del")
}

func (r *RedisBackend) Keys(prefix string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	pattern := escapeGlob(r.prefix+prefix) + "*"
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "redis scan")
	}
	return keys, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// escapeGlob quotes redis MATCH metacharacters.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\', '^':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
