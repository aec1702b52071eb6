// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeranaias/agrichat/internal/config"
)

// ErrUnavailable is returned by a backend that has been closed or could not
// be reached.
var ErrUnavailable = errors.New("kvstore: backend unavailable")

// Backend is a synchronous key/value store holding raw bytes.
type Backend interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys lists every key starting with prefix, in no particular order.
	Keys(prefix string) ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryBackend(), nil

	case "file", "":
		path := cfg.Path
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "store")
		}
		return NewFileBackend(path)

	case "sqlite":
		path := cfg.Path
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "store.db")
		}
		return NewSQLiteBackend(path)

	case "redis":
		return NewRedisBackend(RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.RedisPrefix,
		})

	default:
		return nil, errors.Errorf("kvstore: unknown backend %q", cfg.Backend)
	}
}
