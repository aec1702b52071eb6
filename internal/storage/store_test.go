// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agrichat/internal/kvstore"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeAgent struct {
	mu       sync.Mutex
	answer   string
	err      error
	asked    []string
	logged   []string
	logOK    bool
	answerFn func(question string) (string, error)
}

func (a *fakeAgent) Answer(_ context.Context, question string) (string, error) {
	a.mu.Lock()
	a.asked = append(a.asked, question)
	fn := a.answerFn
	a.mu.Unlock()
	if fn != nil {
		return fn(question)
	}
	return a.answer, a.err
}

func (a *fakeAgent) LogExchange(_ context.Context, userID, question, answer string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logged = append(a.logged, userID+"|"+question+"|"+answer)
	return a.logOK
}

type testEnv struct {
	mem   *kvstore.MemoryBackend
	kv    *kvstore.Store
	agent *fakeAgent
	clock time.Time
	seq   int
}

func newEnv() *testEnv {
	mem := kvstore.NewMemoryBackend()
	return &testEnv{
		mem:   mem,
		kv:    kvstore.New(mem),
		agent: &fakeAgent{answer: "Plant wheat in November.", logOK: true},
		clock: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (e *testEnv) store(opts ...Option) *Store {
	base := []Option{
		WithAgent(e.agent),
		WithClock(func() time.Time {
			e.clock = e.clock.Add(time.Second)
			return e.clock
		}),
		WithIDGenerator(func() ID {
			e.seq++
			return ID(fmt.Sprintf("id-%03d", e.seq))
		}),
	}
	return NewStore(e.kv, append(base, opts...)...)
}

func (e *testEnv) raw(t *testing.T, key string) string {
	t.Helper()
	v, ok := e.mem.Raw(key)
	require.True(t, ok, "key %s not persisted", key)
	return string(v)
}

func texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Sender)+":"+m.Text)
	}
	return out
}

// =============================================================================
// SEND TURN
// =============================================================================

func TestSend_FirstTurnCreatesLockedConversation(t *testing.T) {
	env := newEnv()
	s := env.store()
	s.Rehydrate()

	reply, err := s.Send(context.Background(), "When should I plant wheat?")
	require.NoError(t, err)
	assert.Equal(t, "Plant wheat in November.", reply.Text)
	assert.Equal(t, SenderBot, reply.Sender)

	summaries := s.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "When should I plant wheat?", summaries[0].Text)
	assert.True(t, summaries[0].TitleLocked)
	assert.Equal(t, summaries[0].ID, s.ActiveID())
	assert.Equal(t, []string{"When should I plant wheat?"}, env.agent.asked)
}

func TestSend_GatewayFailureAppendsErrorNotice(t *testing.T) {
	env := newEnv()
	env.agent.err = errors.New("connection refused")
	s := env.store()
	s.Rehydrate()

	_, err := s.Send(context.Background(), "When should I plant wheat?")
	require.NoError(t, err)

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "When should I plant wheat?", msgs[0].Text)
	assert.Equal(t, SenderBot, msgs[1].Sender)
	assert.Equal(t, ErrorNotice, msgs[1].Text)

	summaries := s.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "When should I plant wheat?", summaries[0].Text)
	assert.True(t, summaries[0].TitleLocked)
}

func TestSend_EmptyAnswerUsesFallback(t *testing.T) {
	env := newEnv()
	env.agent.answer = "   "
	s := env.store()

	reply, err := s.Send(context.Background(), "soil pH?")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, reply.Text)
}

func TestSend_EmptyTextIgnored(t *testing.T) {
	env := newEnv()
	s := env.store()

	_, err := s.Send(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyTurn)
	assert.Empty(t, s.Summaries())
	assert.Empty(t, env.agent.asked)
}

func TestSend_TitleFollowsFirstUnlockedTurn(t *testing.T) {
	env := newEnv()
	s := env.store()
	s.NewChat()

	turns := []string{"Best rice variety for clay soil?", "What about irrigation?", "And fertilizer?"}
	for _, turn := range turns {
		_, err := s.Send(context.Background(), turn)
		require.NoError(t, err)
	}

	summaries := s.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, turns[0], summaries[0].Text)
	assert.True(t, summaries[0].TitleLocked)
	assert.Len(t, s.ActiveMessages(), 6)
}

func TestSend_LockedTurnOnlyAdvancesTimestamp(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)
	before := s.Summaries()[0]

	_, err = s.Send(context.Background(), "second")
	require.NoError(t, err)
	after := s.Summaries()[0]

	assert.Equal(t, "first", after.Text)
	assert.True(t, after.Timestamp.After(before.Timestamp))
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestSend_LogsExchangeWhenIdentityKnown(t *testing.T) {
	env := newEnv()
	s := env.store(WithUserID(func() string { return "7" }))

	_, err := s.Send(context.Background(), "pest control for cotton")
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, []string{"7|pest control for cotton|Plant wheat in November."}, env.agent.logged)
}

func TestSend_LogFailureIsNotSurfaced(t *testing.T) {
	env := newEnv()
	env.agent.logOK = false
	s := env.store(WithUserID(func() string { return "7" }))

	reply, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, "Plant wheat in November.", reply.Text)
	assert.Len(t, env.agent.logged, 1)
}

func TestSend_NoLoggingWithoutIdentityOrOnFailure(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	s.Wait()
	assert.Empty(t, env.agent.logged)

	env.agent.err = errors.New("down")
	s2 := env.store(WithUserID(func() string { return "7" }))
	_, err = s2.Send(context.Background(), "q2")
	require.NoError(t, err)
	s2.Wait()
	assert.Empty(t, env.agent.logged)
}

func TestSend_WithoutAgent(t *testing.T) {
	env := newEnv()
	s := NewStore(env.kv)

	reply, err := s.Send(context.Background(), "anyone there?")
	require.NoError(t, err)
	assert.Equal(t, ErrorNotice, reply.Text)
}

func TestCompleteTurn_AfterSwitchLandsInOriginatingConversation(t *testing.T) {
	env := newEnv()
	s := env.store()

	first := s.NewChat()
	turn, err := s.BeginTurn("how much water for maize?")
	require.NoError(t, err)
	assert.Equal(t, first.ID, turn.ConversationID)

	second := s.NewChat()
	require.Equal(t, second.ID, s.ActiveID())

	s.CompleteTurn(turn, "About 500 mm per season.", nil)

	assert.Empty(t, s.ActiveMessages(), "reply must not leak into the new conversation")
	assert.Equal(t,
		[]string{"user:how much water for maize?", "bot:About 500 mm per season."},
		texts(s.Messages(first.ID)))

	require.NoError(t, s.LoadChat(first.ID))
	assert.Len(t, s.ActiveMessages(), 2)
}

func TestCompleteTurn_DeletedConversationDropsReply(t *testing.T) {
	env := newEnv()
	s := env.store()

	turn, err := s.BeginTurn("question")
	require.NoError(t, err)
	require.NoError(t, s.Delete(turn.ConversationID))

	s.CompleteTurn(turn, "answer", nil)

	assert.Empty(t, s.Summaries())
	_, found := env.mem.Raw(MessagesKey(turn.ConversationID))
	assert.False(t, found)
}

func TestBeginTurn_UIReflectsTurnBeforeAnswer(t *testing.T) {
	env := newEnv()
	release := make(chan struct{})
	env.agent.answerFn = func(string) (string, error) {
		<-release
		return "done", nil
	}
	s := env.store()

	turn, err := s.BeginTurn("slow question")
	require.NoError(t, err)

	done := make(chan Message)
	go func() { done <- s.Resolve(context.Background(), turn) }()

	assert.Equal(t, []string{"user:slow question"}, texts(s.ActiveMessages()))
	close(release)
	reply := <-done
	assert.Equal(t, "done", reply.Text)
	assert.Len(t, s.ActiveMessages(), 2)
}

func TestSend_UniqueIDsUnderRapidCreation(t *testing.T) {
	env := newEnv()
	s := NewStore(env.kv, WithAgent(env.agent))

	for i := 0; i < 20; i++ {
		_, err := s.Send(context.Background(), "q")
		require.NoError(t, err)
	}

	seen := map[ID]bool{}
	for _, m := range s.ActiveMessages() {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

// =============================================================================
// NEW / LOAD / RENAME
// =============================================================================

func TestNewChat(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "old")
	require.NoError(t, err)

	c := s.NewChat()
	assert.Equal(t, NewConversationTitle, c.Text)
	assert.False(t, c.TitleLocked)
	assert.Equal(t, c.ID, s.ActiveID())
	assert.Empty(t, s.ActiveMessages())

	summaries := s.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, c.ID, summaries[0].ID, "new chat is prepended")

	_, err = s.Send(context.Background(), "renamed by first turn")
	require.NoError(t, err)
	assert.Equal(t, "renamed by first turn", s.Summaries()[0].Text)
}

func TestLoadChat(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "first conversation")
	require.NoError(t, err)
	first := s.ActiveID()
	s.NewChat()

	require.NoError(t, s.LoadChat(first))
	assert.Equal(t, first, s.ActiveID())
	assert.Len(t, s.ActiveMessages(), 2)

	var active ID
	require.True(t, env.kv.Get("activeHistoryId", &active))
	assert.Equal(t, first, active)
}

func TestLoadChat_NoStoredMessages(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()
	env.mem.Remove(MessagesKey(c.ID))
	s.NewChat()

	require.NoError(t, s.LoadChat(c.ID))
	assert.Empty(t, s.ActiveMessages())
}

func TestLoadChat_UnknownID(t *testing.T) {
	env := newEnv()
	s := env.store()
	err := s.LoadChat("nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRename(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()

	assert.True(t, s.Rename(c.ID, "  Kharif planning  "))
	got, ok := s.Summary(c.ID)
	require.True(t, ok)
	assert.Equal(t, "Kharif planning", got.Text)
	assert.True(t, got.TitleLocked)

	_, err := s.Send(context.Background(), "does not retitle")
	require.NoError(t, err)
	got, _ = s.Summary(c.ID)
	assert.Equal(t, "Kharif planning", got.Text)
}

func TestRename_EmptyIsCancelled(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()
	before := env.raw(t, "chatHistory")

	assert.False(t, s.Rename(c.ID, ""))
	assert.False(t, s.Rename(c.ID, "   \t"))

	got, _ := s.Summary(c.ID)
	assert.Equal(t, NewConversationTitle, got.Text)
	assert.False(t, got.TitleLocked)
	assert.Equal(t, before, env.raw(t, "chatHistory"))
}

func TestRename_UnknownID(t *testing.T) {
	env := newEnv()
	s := env.store()
	assert.False(t, s.Rename("42", "title"))
}

func TestRename_NormalizesUnicode(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()
	require.True(t, s.Rename(c.ID, "cafe\u0301"))
	got, _ := s.Summary(c.ID)
	assert.Equal(t, "caf\u00e9", got.Text)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_ActivePromotesNextInListOrder(t *testing.T) {
	env := newEnv()
	s := env.store()

	_, err := s.Send(context.Background(), "oldest")
	require.NoError(t, err)
	oldest := s.ActiveID()

	s.NewChat()
	_, err = s.Send(context.Background(), "middle")
	require.NoError(t, err)
	middle := s.ActiveID()

	s.NewChat()
	_, err = s.Send(context.Background(), "newest")
	require.NoError(t, err)
	newest := s.ActiveID()

	require.NoError(t, s.Delete(newest))

	assert.Equal(t, middle, s.ActiveID())
	assert.Equal(t, []string{"user:middle", "bot:Plant wheat in November."}, texts(s.ActiveMessages()))
	ids := []ID{}
	for _, c := range s.Summaries() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []ID{middle, oldest}, ids)

	_, found := env.mem.Raw(MessagesKey(newest))
	assert.False(t, found, "deleted conversation's messages are removed")
}

func TestDelete_ActivePromotesConversationWithoutMessages(t *testing.T) {
	env := newEnv()
	s := env.store()
	empty := s.NewChat()
	env.mem.Remove(MessagesKey(empty.ID))
	active := s.NewChat()

	require.NoError(t, s.Delete(active.ID))
	assert.Equal(t, empty.ID, s.ActiveID())
	assert.Empty(t, s.ActiveMessages())
}

func TestDelete_OnlyConversation(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "only")
	require.NoError(t, err)

	require.NoError(t, s.Delete(s.ActiveID()))

	assert.Equal(t, ID(""), s.ActiveID())
	assert.Empty(t, s.ActiveMessages())
	assert.Empty(t, s.Summaries())
	_, found := env.mem.Raw("activeHistoryId")
	assert.False(t, found)
	assert.Equal(t, "[]", env.raw(t, "chatHistory"))
}

func TestDelete_NonActiveKeepsActive(t *testing.T) {
	env := newEnv()
	s := env.store()
	other := s.NewChat()
	active := s.NewChat()

	require.NoError(t, s.Delete(other.ID))
	assert.Equal(t, active.ID, s.ActiveID())
	assert.Len(t, s.Summaries(), 1)
}

func TestDelete_UnknownID(t *testing.T) {
	env := newEnv()
	s := env.store()
	assert.ErrorIs(t, s.Delete("missing"), ErrConversationNotFound)
}

// =============================================================================
// CLEAR ALL
// =============================================================================

func TestClearAll_SweepsEveryMessageKey(t *testing.T) {
	env := newEnv()
	s := env.store()
	for _, q := range []string{"a", "b", "c"} {
		s.NewChat()
		_, err := s.Send(context.Background(), q)
		require.NoError(t, err)
	}
	env.kv.Set(MessagesKey("orphan"), []Message{})
	env.kv.Set("user", map[string]string{"user_id": "7"})

	s.ClearAll()

	assert.Empty(t, s.Summaries())
	assert.Equal(t, ID(""), s.ActiveID())
	assert.Empty(t, s.ActiveMessages())
	assert.Empty(t, env.kv.Keys("chatMessages_"))
	assert.False(t, env.kv.Has("chatHistory"))
	assert.False(t, env.kv.Has("activeHistoryId"))
	assert.True(t, env.kv.Has("user"), "identity is not part of chat history")
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearch(t *testing.T) {
	env := newEnv()
	env.agent.answer = "Scout fields in November."
	s := env.store()
	_, err := s.Send(context.Background(), "Wheat rust treatment")
	require.NoError(t, err)
	s.NewChat()
	_, err = s.Send(context.Background(), "Rice blast")
	require.NoError(t, err)

	assert.Len(t, s.Search(""), 2)

	got := s.Search("WHEAT")
	require.Len(t, got, 1)
	assert.Equal(t, "Wheat rust treatment", got[0].Text)

	got = s.Search("november")
	assert.Len(t, got, 2, "bot messages are searched too")

	assert.Empty(t, s.Search("sugarcane"))
}

// =============================================================================
// WRITE POLICY
// =============================================================================

func TestWritePolicy_PersistsAfterEveryMutation(t *testing.T) {
	env := newEnv()
	s := env.store()

	turn, err := s.BeginTurn("q1")
	require.NoError(t, err)

	var msgs []Message
	require.True(t, env.kv.Get(MessagesKey(turn.ConversationID), &msgs))
	assert.Len(t, msgs, 1)

	var history []ConversationSummary
	require.True(t, env.kv.Get("chatHistory", &history))
	require.Len(t, history, 1)
	assert.Equal(t, "q1", history[0].Text)

	s.CompleteTurn(turn, "a1", nil)
	require.True(t, env.kv.Get(MessagesKey(turn.ConversationID), &msgs))
	assert.Len(t, msgs, 2)
}

type countingBackend struct {
	kvstore.Backend
	mu   sync.Mutex
	sets int
}

func (c *countingBackend) Set(key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Backend.Set(key, value)
}

func TestRehydrate_SuppressesWrites(t *testing.T) {
	env := newEnv()
	seed := env.store()
	_, err := seed.Send(context.Background(), "persisted")
	require.NoError(t, err)

	counter := &countingBackend{Backend: env.mem}
	s := NewStore(kvstore.New(counter))
	s.Rehydrate()

	assert.Zero(t, counter.sets)
	assert.Len(t, s.ActiveMessages(), 2)
}

// =============================================================================
// SHARE
// =============================================================================

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func TestShare_EmptyConversation(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()

	clip := &fakeClipboard{}
	out, err := s.Share(c.ID, clip)
	require.NoError(t, err)
	assert.Equal(t, "No messages in this chat yet.", out)
	assert.Equal(t, "No messages in this chat yet.", clip.text)
}

func TestShare_ActiveAndStoredConversations(t *testing.T) {
	env := newEnv()
	s := env.store()
	_, err := s.Send(context.Background(), "Is it going to rain?")
	require.NoError(t, err)
	first := s.ActiveID()
	s.NewChat()

	want := "You: Is it going to rain?\nBot: Plant wheat in November."
	clip := &fakeClipboard{}
	out, err := s.Share(first, clip)
	require.NoError(t, err)
	assert.Equal(t, want, out)

	require.NoError(t, s.LoadChat(first))
	assert.Equal(t, want, s.Transcript(first))
}

func TestShare_ClipboardFailure(t *testing.T) {
	env := newEnv()
	s := env.store()
	c := s.NewChat()

	_, err := s.Share(c.ID, &fakeClipboard{err: errors.New("no display")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")

	_, err = s.Share(c.ID, nil)
	assert.Error(t, err)
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatHistoryList(t *testing.T) {
	assert.Equal(t, "No conversations found.", FormatHistoryList(nil, ""))

	list := []ConversationSummary{
		{ID: "aaaaaaaa-1111", Text: "Wheat\nsowing", Timestamp: time.Now()},
		{ID: "bbbbbbbb-2222", Text: "Rice", Timestamp: time.Now()},
	}
	out := FormatHistoryList(list, "bbbbbbbb-2222")
	assert.Contains(t, out, "Conversations:")
	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "Wheat sowing")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Rice") {
			assert.True(t, strings.HasPrefix(line, "* "))
		}
	}
}

func TestConversationError_Is(t *testing.T) {
	err1 := &ConversationError{Message: "test error"}
	err2 := &ConversationError{Message: "test error"}
	err3 := &ConversationError{Message: "different error"}

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestMessageJSONShape(t *testing.T) {
	m := Message{ID: "m1", Text: "hi", Sender: SenderUser, Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1","text":"hi","sender":"user","timestamp":"2025-01-02T03:04:05Z"}`, string(data))
}
