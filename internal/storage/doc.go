// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage holds the chat session store: the ordered list of
// conversation summaries, the active conversation pointer and the message
// list of the active conversation, persisted through a kvstore.Store.
//
// # Persisted Keys
//
//   - chatHistory: []ConversationSummary, newest first
//   - activeHistoryId: ID of the active conversation
//   - chatMessages_<id>: []Message for one conversation
//
// # Write Policy
//
// A change to the active message list or the active pointer writes
// chatMessages_<active> and activeHistoryId. A change to the summary list
// writes chatHistory. Nothing is written while Rehydrate is running.
//
// The two writes are not atomic. A crash between them leaves either an
// active pointer to a conversation missing from chatHistory, which Rehydrate
// repairs by falling back to the newest summary, or an orphaned
// chatMessages_ key, which ClearAll sweeps.
package storage
