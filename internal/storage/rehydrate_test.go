// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agrichat/internal/kvstore"
)

func TestRehydrate_RoundTrip(t *testing.T) {
	env := newEnv()
	s := env.store()

	_, err := s.Send(context.Background(), "Drip irrigation cost")
	require.NoError(t, err)
	s.NewChat()
	_, err = s.Send(context.Background(), "Organic fertilizer")
	require.NoError(t, err)
	first := s.Summaries()[1].ID
	require.NoError(t, s.LoadChat(first))

	restored := NewStore(env.kv)
	restored.Rehydrate()

	assert.Equal(t, first, restored.ActiveID())
	wantSummaries := s.Summaries()
	gotSummaries := restored.Summaries()
	require.Len(t, gotSummaries, len(wantSummaries))
	for i := range wantSummaries {
		assert.Equal(t, wantSummaries[i].ID, gotSummaries[i].ID)
		assert.Equal(t, wantSummaries[i].Text, gotSummaries[i].Text)
		assert.Equal(t, wantSummaries[i].TitleLocked, gotSummaries[i].TitleLocked)
		assert.True(t, wantSummaries[i].Timestamp.Equal(gotSummaries[i].Timestamp))
		assert.True(t, wantSummaries[i].CreatedAt.Equal(gotSummaries[i].CreatedAt))
	}

	wantMsgs := s.ActiveMessages()
	gotMsgs := restored.ActiveMessages()
	require.Len(t, gotMsgs, len(wantMsgs))
	for i := range wantMsgs {
		assert.Equal(t, wantMsgs[i].ID, gotMsgs[i].ID)
		assert.Equal(t, wantMsgs[i].Text, gotMsgs[i].Text)
		assert.Equal(t, wantMsgs[i].Sender, gotMsgs[i].Sender)
		assert.True(t, wantMsgs[i].Timestamp.Equal(gotMsgs[i].Timestamp))
	}
}

func TestRehydrate_LegacyRecords(t *testing.T) {
	env := newEnv()
	env.mem.PutRaw("chatHistory", []byte(`[
		{"id": 1700000000000, "text": "Tomato blight", "timestamp": "2023-11-14T22:13:20.000Z"},
		{"id": 1690000000000, "text": "New conversation"},
		{"id": 1680000000000, "text": "Soil test", "titleLocked": false, "timestamp": 1680000005000},
		{"id": 1670000000000, "text": "Broken", "timestamp": "yesterday-ish"}
	]`))
	env.mem.PutRaw("activeHistoryId", []byte(`1700000000000`))
	env.mem.PutRaw("chatMessages_1700000000000", []byte(`[
		{"id": 1700000000001, "text": "Tomato blight", "sender": "user", "timestamp": "2023-11-14T22:13:21.000Z"},
		{"id": 1700000000002, "text": "Use copper spray.", "sender": "bot"}
	]`))

	s := env.store()
	s.Rehydrate()

	summaries := s.Summaries()
	require.Len(t, summaries, 4)

	assert.Equal(t, ID("1700000000000"), summaries[0].ID)
	assert.True(t, summaries[0].TitleLocked, "legacy titled records default to locked")
	assert.True(t, summaries[0].Timestamp.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
	assert.True(t, summaries[0].CreatedAt.Equal(time.UnixMilli(1700000000000)))

	assert.False(t, summaries[1].TitleLocked, "placeholder title stays unlocked")
	assert.False(t, summaries[1].Timestamp.IsZero(), "missing timestamp defaults to now")

	assert.False(t, summaries[2].TitleLocked)
	assert.True(t, summaries[2].Timestamp.Equal(time.UnixMilli(1680000005000)))

	assert.False(t, summaries[3].Timestamp.IsZero())

	assert.Equal(t, ID("1700000000000"), s.ActiveID())
	msgs := s.ActiveMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ID("1700000000001"), msgs[0].ID)
	assert.True(t, msgs[0].Timestamp.Equal(time.Date(2023, 11, 14, 22, 13, 21, 0, time.UTC)))
	assert.False(t, msgs[1].Timestamp.IsZero())

	// Legacy conversations keep working after rehydration.
	_, err := s.Send(context.Background(), "follow up")
	require.NoError(t, err)
	assert.Equal(t, "Tomato blight", s.Summaries()[0].Text)
}

func TestRehydrate_NoActiveAdoptsFirst(t *testing.T) {
	env := newEnv()
	env.kv.Set("chatHistory", []ConversationSummary{
		{ID: "b", Text: "newer", TitleLocked: true},
		{ID: "a", Text: "older", TitleLocked: true},
	})
	env.kv.Set(MessagesKey("b"), []Message{{ID: "m", Text: "hello", Sender: SenderUser}})

	s := env.store()
	s.Rehydrate()

	assert.Equal(t, ID("b"), s.ActiveID())
	assert.Len(t, s.ActiveMessages(), 1)
}

func TestRehydrate_DanglingActiveSelfHeals(t *testing.T) {
	env := newEnv()
	env.kv.Set("chatHistory", []ConversationSummary{{ID: "a", Text: "kept", TitleLocked: true}})
	env.kv.Set("activeHistoryId", ID("deleted-elsewhere"))

	s := env.store()
	s.Rehydrate()
	assert.Equal(t, ID("a"), s.ActiveID())

	env2 := newEnv()
	env2.kv.Set("activeHistoryId", ID("ghost"))
	s2 := env2.store()
	s2.Rehydrate()
	assert.Equal(t, ID(""), s2.ActiveID())
	assert.Empty(t, s2.ActiveMessages())
}

func TestRehydrate_EmptyStore(t *testing.T) {
	env := newEnv()
	s := env.store()
	s.Rehydrate()

	assert.Empty(t, s.Summaries())
	assert.Equal(t, ID(""), s.ActiveID())
	assert.Empty(t, s.ActiveMessages())
}

func TestRehydrate_CorruptHistoryDegradesToEmpty(t *testing.T) {
	env := newEnv()
	env.mem.PutRaw("chatHistory", []byte(`{"oops":`))
	faults := 0
	env.kv.OnFault(func(kvstore.Fault) { faults++ })

	s := env.store()
	s.Rehydrate()

	assert.Empty(t, s.Summaries())
	assert.Equal(t, 1, faults)

	_, err := s.Send(context.Background(), "still usable")
	require.NoError(t, err)
	assert.Len(t, s.Summaries(), 1)
}

// crashingBackend fails writes to one key, simulating a crash between the
// message write and the summary write.
type crashingBackend struct {
	kvstore.Backend
	mu      sync.Mutex
	failKey string
}

func (c *crashingBackend) Set(key string, value []byte) error {
	c.mu.Lock()
	fail := key == c.failKey
	c.mu.Unlock()
	if fail {
		return errors.New("process died")
	}
	return c.Backend.Set(key, value)
}

func TestTwoKeyWindow_CrashBeforeSummaryWrite(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "survives")
	require.NoError(t, err)
	survivor := s.ActiveID()

	crash := &crashingBackend{Backend: env.mem, failKey: "chatHistory"}
	crashed := NewStore(kvstore.New(crash))
	crashed.Rehydrate()
	crashed.NewChat()
	_, err = crashed.BeginTurn("lost summary")
	require.NoError(t, err)

	// Messages and active pointer reached disk, the summary list did not.
	var active ID
	require.True(t, env.kv.Get("activeHistoryId", &active))
	assert.NotEqual(t, survivor, active)
	var history []ConversationSummary
	require.True(t, env.kv.Get("chatHistory", &history))
	require.Len(t, history, 1)

	restored := NewStore(env.kv)
	restored.Rehydrate()
	assert.Equal(t, survivor, restored.ActiveID(), "dangling pointer falls back to newest summary")
	assert.Len(t, restored.ActiveMessages(), 2)

	// The orphaned message list is swept by ClearAll.
	assert.Len(t, env.kv.Keys("chatMessages_"), 2)
	restored.ClearAll()
	assert.Empty(t, env.kv.Keys("chatMessages_"))
}

func TestTwoKeyWindow_CrashBeforeMessageWrite(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)
	id := s.ActiveID()

	crash := &crashingBackend{Backend: env.mem, failKey: MessagesKey(id)}
	crashed := NewStore(kvstore.New(crash))
	crashed.Rehydrate()
	_, err = crashed.BeginTurn("second")
	require.NoError(t, err)

	restored := NewStore(env.kv)
	restored.Rehydrate()
	assert.Equal(t, id, restored.ActiveID())
	assert.Len(t, restored.ActiveMessages(), 2, "message list keeps its last good state")
	assert.Equal(t, "first", restored.Summaries()[0].Text)
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"abc"`, "abc"},
		{`1700000000000`, "1700000000000"},
		{`null`, ""},
	}
	for _, tc := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tc.in), &id), tc.in)
		assert.Equal(t, tc.want, id)
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestID_LegacyTime(t *testing.T) {
	ts, ok := ID("1700000000000").LegacyTime()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	_, ok = ID("6f1c2a9e-uuid").LegacyTime()
	assert.False(t, ok)
}

func TestCoerceTime(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		want int64
	}{
		{`"2024-05-01T10:00:00Z"`, true, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli()},
		{`"2024-05-01T10:00:00.123+05:30"`, true, time.Date(2024, 5, 1, 4, 30, 0, 123e6, time.UTC).UnixMilli()},
		{`1714557600000`, true, 1714557600000},
		{`"1714557600000"`, true, 1714557600000},
		{`"not a date"`, false, 0},
		{`null`, false, 0},
		{``, false, 0},
		{`-5`, false, 0},
		{`{}`, false, 0},
	}
	for _, tc := range tests {
		got, ok := coerceTime(json.RawMessage(tc.raw))
		assert.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got.UnixMilli(), tc.raw)
		}
	}
}

func TestCoerceBool(t *testing.T) {
	for raw, want := range map[string][2]bool{
		`true`:   {true, true},
		`false`:  {false, true},
		`"true"`: {true, true},
		`null`:   {false, false},
		``:       {false, false},
		`1`:      {false, false},
	} {
		got, ok := coerceBool(json.RawMessage(raw))
		assert.Equal(t, want[0], got, raw)
		assert.Equal(t, want[1], ok, raw)
	}
}
