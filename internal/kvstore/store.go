// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Op names the operation that faulted.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpKeys   Op = "keys"
)

// Fault describes a contained persistence failure.
type Fault struct {
	Op  Op
	Key string
	Err error
}

func (f Fault) Error() string {
	return "kvstore " + string(f.Op) + " " + f.Key + ": " + f.Err.Error()
}

func (f Fault) Unwrap() error { return f.Err }

// Store is the persistence adapter. None of its methods return errors; a
// failed read looks like a missing key and a failed write is dropped.
type Store struct {
	backend Backend
	logger  zerolog.Logger

	mu      sync.RWMutex
	onFault func(Fault)
}

// New wraps backend. A nil backend behaves as permanently unavailable.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		logger:  log.Logger.With().Str("component", "kvstore").Logger(),
	}
}

// OnFault registers a hook called for every contained fault.
func (s *Store) OnFault(fn func(Fault)) {
	s.mu.Lock()
	s.onFault = fn
	s.mu.Unlock()
}

func (s *Store) fault(op Op, key string, err error) {
	f := Fault{Op: op, Key: key, Err: err}
	s.logger.Warn().Str("op", string(op)).Str("key", key).Err(err).Msg("STORAGE_FAULT")

	s.mu.RLock()
	fn := s.onFault
	s.mu.RUnlock()
	if fn != nil {
		fn(f)
	}
}

// Get decodes the JSON stored under key into dst. It reports false when the
// key is absent, the stored bytes are not valid JSON, or the backend faults.
func (s *Store) Get(key string, dst any) bool {
	if s.backend == nil {
		s.fault(OpGet, key, ErrUnavailable)
		return false
	}
	raw, found, err := s.backend.Get(key)
	if err != nil {
		s.fault(OpGet, key, err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.fault(OpGet, key, errors.Wrap(err, "corrupt value"))
		return false
	}
	return true
}

// Has reports whether key holds a value.
func (s *Store) Has(key string) bool {
	var raw json.RawMessage
	return s.Get(key, &raw)
}

// Set stores v as JSON under key.
func (s *Store) Set(key string, v any) {
	if s.backend == nil {
		s.fault(OpSet, key, ErrUnavailable)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.fault(OpSet, key, errors.Wrap(err, "encode value"))
		return
	}
	if err := s.backend.Set(key, data); err != nil {
		s.fault(OpSet, key, err)
	}
}

// Remove deletes key.
func (s *Store) Remove(key string) {
	if s.backend == nil {
		s.fault(OpRemove, key, ErrUnavailable)
		return
	}
	if err := s.backend.Remove(key); err != nil {
		s.fault(OpRemove, key, err)
	}
}

// Keys lists keys starting with prefix in sorted order. It returns nil on
// fault.
func (s *Store) Keys(prefix string) []string {
	if s.backend == nil {
		s.fault(OpKeys, prefix, ErrUnavailable)
		return nil
	}
	keys, err := s.backend.Keys(prefix)
	if err != nil {
		s.fault(OpKeys, prefix, err)
		return nil
	}
	sort.Strings(keys)
	return keys
}

// Close closes the backend.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
