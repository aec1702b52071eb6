// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kvstore provides the key/value persistence adapter used by the
// chat session store and the session manager.
//
// A Store wraps a synchronous Backend with JSON encoding and contains every
// fault: callers never see an error. Faults are logged and forwarded to an
// optional OnFault hook so the UI can surface them.
//
// # Backends
//
//   - MemoryBackend: map guarded by a mutex (tests, ephemeral sessions)
//   - FileBackend: one JSON file per key, written atomically (default)
//   - SQLiteBackend: single kv table in a pure-Go SQLite database
//   - RedisBackend: shared store for several terminals
package kvstore
