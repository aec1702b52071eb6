// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// NewConversationTitle is the placeholder title of an unnamed conversation.
const NewConversationTitle = "New conversation"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID identifies a conversation or a message. New IDs are UUIDs; records
// written by older clients used millisecond timestamps, which decode to
// their decimal string.
type ID string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

// LegacyTime returns the creation time encoded in a numeric legacy ID.
func (id ID) LegacyTime() (time.Time, bool) {
	ms, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Short returns the first eight characters of the ID for display.
func (id ID) Short() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// MessagesKey returns the persistence key for the conversation's messages.
func MessagesKey(id ID) string {
	return messagesKeyPrefix + string(id)
}

const (
	historyKey        = "chatHistory"
	activeKey         = "activeHistoryId"
	messagesKeyPrefix = "chatMessages_"
)

// =============================================================================
// RECORDS
// =============================================================================

// Sender is the author of a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ID          ID        `json:"id"`
	Text        string    `json:"text"`
	TitleLocked bool      `json:"titleLocked"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message is one turn of a conversation.
type Message struct {
	ID        ID        `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// LEGACY DECODING
// =============================================================================

// storedSummary tolerates records with missing or differently typed fields.
type storedSummary struct {
	ID          ID              `json:"id"`
	Text        string          `json:"text"`
	TitleLocked json.RawMessage `json:"titleLocked"`
	Timestamp   json.RawMessage `json:"timestamp"`
	CreatedAt   json.RawMessage `json:"createdAt"`
}

type storedMessage struct {
	ID        ID              `json:"id"`
	Text      string          `json:"text"`
	Sender    Sender          `json:"sender"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (s storedSummary) normalize(now time.Time) ConversationSummary {
	ts, ok := coerceTime(s.Timestamp)
	if !ok {
		ts = now
	}

	created, ok := coerceTime(s.CreatedAt)
	if !ok {
		if legacy, isLegacy := s.ID.LegacyTime(); isLegacy {
			created = legacy
		} else {
			created = ts
		}
	}

	locked, ok := coerceBool(s.TitleLocked)
	if !ok {
		locked = s.Text != NewConversationTitle
	}

	return ConversationSummary{
		ID:          s.ID,
		Text:        s.Text,
		TitleLocked: locked,
		Timestamp:   ts,
		CreatedAt:   created,
	}
}

func (m storedMessage) normalize(now time.Time) Message {
	ts, ok := coerceTime(m.Timestamp)
	if !ok {
		ts = now
	}
	return Message{ID: m.ID, Text: m.Text, Sender: m.Sender, Timestamp: ts}
}

// coerceTime reads an RFC 3339 string, a numeric string or a number of
// epoch milliseconds.
func coerceTime(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms), true
		}
		return time.Time{}, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(f)), true
}

func coerceBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", `"true"`:
		return true, true
	case "false", `"false"`:
		return false, true
	default:
		return false, false
	}
}
