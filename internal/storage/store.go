// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/agrichat/internal/kvstore"
	"github.com/jeranaias/agrichat/internal/util"
)

// Bot messages used when the assistant cannot answer.
const (
	// FallbackAnswer replaces an empty answer from the assistant.
	FallbackAnswer = "Sorry, I don't have an answer for that yet."
	// ErrorNotice is shown when the question could not be answered at all.
	ErrorNotice = "Sorry, something went wrong while contacting the assistant. Please try again."
)

// Agent answers questions and records completed exchanges remotely.
type Agent interface {
	Answer(ctx context.Context, question string) (string, error)
	LogExchange(ctx context.Context, userID, question, answer string) bool
}

// Turn is a user message that is waiting for the assistant's reply.
type Turn struct {
	ConversationID ID
	Question       string
	SentAt         time.Time
}

// =============================================================================
// CHAT SESSION STORE
// =============================================================================

// Store is the chat session store.
type Store struct {
	kv     *kvstore.Store
	agent  Agent
	userID func() string
	now    func() time.Time
	newID  func() ID
	logger zerolog.Logger

	mu        sync.Mutex
	summaries []ConversationSummary
	active    ID
	messages  []Message
	restoring bool

	background sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithAgent sets the assistant used by Resolve and Send.
func WithAgent(agent Agent) Option {
	return func(s *Store) { s.agent = agent }
}

// WithUserID sets the identity source for remote exchange logging. An empty
// user ID disables logging.
func WithUserID(fn func() string) Option {
	return func(s *Store) { s.userID = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides ID generation.
func WithIDGenerator(fn func() ID) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates an empty store. Call Rehydrate to load persisted state.
func NewStore(kv *kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		userID: func() string { return "" },
		now:    time.Now,
		newID:  func() ID { return ID(uuid.NewString()) },
		logger: log.Logger.With().Str("component", "storage").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// REHYDRATION
// =============================================================================

// Rehydrate replaces in-memory state with the persisted state.
func (s *Store) Rehydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoring = true
	defer func() { s.restoring = false }()

	now := s.now()

	var stored []storedSummary
	s.kv.Get(historyKey, &stored)
	summaries := make([]ConversationSummary, 0, len(stored))
	for _, st := range stored {
		if st.ID == "" {
			continue
		}
		summaries = append(summaries, st.normalize(now))
	}
	s.setSummaries(summaries)

	var active ID
	if s.kv.Get(activeKey, &active) && active != "" && s.indexOf(active) < 0 {
		s.logger.Warn().Str("active_id", string(active)).Msg("DANGLING_ACTIVE_ID")
		active = ""
	}
	if active == "" && len(s.summaries) > 0 {
		active = s.summaries[0].ID
	}
	s.setActive(active, s.loadMessages(active))

	s.logger.Debug().
		Int("conversations", len(s.summaries)).
		Str("active_id", string(s.active)).
		Int("messages", len(s.messages)).
		Msg("REHYDRATED")
}

// =============================================================================
// TURNS
// =============================================================================

// BeginTurn records a user message and updates the conversation summary. It
// returns ErrEmptyTurn when text is blank.
func (s *Store) BeginTurn(text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	msg := Message{ID: s.newID(), Text: text, Sender: SenderUser, Timestamp: now}

	idx := s.indexOf(s.active)
	if idx < 0 {
		summary := ConversationSummary{
			ID:          s.newID(),
			Text:        text,
			TitleLocked: true,
			Timestamp:   now,
			CreatedAt:   now,
		}
		s.setActive(summary.ID, []Message{msg})
		s.setSummaries(append([]ConversationSummary{summary}, s.summaries...))
	} else {
		s.setActive(s.active, append(s.messages, msg))
		summaries := s.cloneSummaries()
		if !summaries[idx].TitleLocked {
			summaries[idx].Text = text
			summaries[idx].TitleLocked = true
		}
		summaries[idx].Timestamp = now
		s.setSummaries(summaries)
	}

	return Turn{ConversationID: s.active, Question: text, SentAt: now}, nil
}

// CompleteTurn appends the assistant's reply for turn. A failed ask becomes
// ErrorNotice and an empty answer becomes FallbackAnswer. When the user has
// switched away, the reply is appended to the originating conversation's
// persisted messages. Replies for deleted conversations are dropped.
func (s *Store) CompleteTurn(turn Turn, answer string, askErr error) Message {
	text := answer
	switch {
	case askErr != nil:
		text = ErrorNotice
	case strings.TrimSpace(answer) == "":
		text = FallbackAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{ID: s.newID(), Text: text, Sender: SenderBot, Timestamp: s.now()}

	switch {
	case turn.ConversationID == s.active:
		s.setActive(s.active, append(s.messages, msg))
	case s.indexOf(turn.ConversationID) >= 0:
		msgs := s.loadMessages(turn.ConversationID)
		s.kv.Set(MessagesKey(turn.ConversationID), append(msgs, msg))
	default:
		s.logger.Info().Str("conversation_id", string(turn.ConversationID)).Msg("REPLY_DROPPED")
	}
	return msg
}

// Resolve asks the agent for turn's answer, records the reply and, on
// success, logs the exchange remotely in the background.
func (s *Store) Resolve(ctx context.Context, turn Turn) Message {
	if s.agent == nil {
		return s.CompleteTurn(turn, "", ErrNoAgent)
	}

	answer, err := s.agent.Answer(ctx, turn.Question)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", string(turn.ConversationID)).Msg("ASK_FAILED")
	}
	reply := s.CompleteTurn(turn, answer, err)

	if err == nil {
		if uid := s.userID(); uid != "" {
			s.logExchange(uid, turn.Question, reply.Text)
		}
	}
	return reply
}

// Send runs a complete turn: BeginTurn followed by Resolve.
func (s *Store) Send(ctx context.Context, text string) (Message, error) {
	turn, err := s.BeginTurn(text)
	if err != nil {
		return Message{}, err
	}
	return s.Resolve(ctx, turn), nil
}

func (s *Store) logExchange(userID, question, answer string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if !s.agent.LogExchange(context.Background(), userID, question, answer) {
			s.logger.Warn().Str("user_id", userID).Msg("HISTORY_LOG_FAILED")
		}
	}()
}

// Wait blocks until background exchange logging has finished.
func (s *Store) Wait() {
	s.background.Wait()
}

// ErrNoAgent is reported when a turn is resolved without an agent.
var ErrNoAgent = &ConversationError{Message: "no assistant configured"}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// NewChat creates an empty conversation and makes it active.
func (s *Store) NewChat() ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	summary := ConversationSummary{
		ID:        s.newID(),
		Text:      NewConversationTitle,
		Timestamp: now,
		CreatedAt: now,
	}
	s.setActive(summary.ID, nil)
	s.setSummaries(append([]ConversationSummary{summary}, s.summaries...))
	return summary
}

// LoadChat makes id active and loads its messages.
func (s *Store) LoadChat(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrConversationNotFound
	}
	s.setActive(id, s.loadMessages(id))
	return nil
}

// Rename sets the title of id and locks it. It reports false, leaving the
// summary unchanged, when title is blank or id is unknown.
func (s *Store) Rename(id ID, title string) bool {
	title = util.NormalizeText(title)
	if title == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	summaries := s.cloneSummaries()
	summaries[idx].Text = title
	summaries[idx].TitleLocked = true
	s.setSummaries(summaries)
	return true
}

// Delete removes id and its messages. Deleting the active conversation
// promotes the next summary in list order, or clears the active pointer
// when none remain.
func (s *Store) Delete(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrConversationNotFound
	}

	summaries := make([]ConversationSummary, 0, len(s.summaries)-1)
	summaries = append(summaries, s.summaries[:idx]...)
	summaries = append(summaries, s.summaries[idx+1:]...)
	s.setSummaries(summaries)
	s.kv.Remove(MessagesKey(id))

	if id == s.active {
		if len(s.summaries) > 0 {
			next := s.summaries[0].ID
			s.setActive(next, s.loadMessages(next))
		} else {
			s.setActive("", nil)
		}
	}
	return nil
}

// ClearAll removes every conversation and every persisted message list.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = nil
	s.active = ""
	s.messages = nil

	s.kv.Remove(historyKey)
	s.kv.Remove(activeKey)
	for _, key := range s.kv.Keys(messagesKeyPrefix) {
		s.kv.Remove(key)
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Summaries returns a copy of the conversation list, newest first.
func (s *Store) Summaries() []ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneSummaries()
}

// Summary returns the summary for id.
func (s *Store) Summary(id ID) (ConversationSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.summaries[idx], true
	}
	return ConversationSummary{}, false
}

// ActiveID returns the active conversation, or "" when none is active.
func (s *Store) ActiveID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ActiveMessages returns a copy of the active conversation's messages.
func (s *Store) ActiveMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Messages returns the messages of any conversation. The active
// conversation is served from memory.
func (s *Store) Messages(id ID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.active && id != "" {
		return append([]Message(nil), s.messages...)
	}
	return s.loadMessages(id)
}

// Search returns conversations whose title or messages contain query,
// ignoring case. An empty query returns every conversation.
func (s *Store) Search(query string) []ConversationSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	all := s.Summaries()
	if query == "" {
		return all
	}

	var results []ConversationSummary
	for _, summary := range all {
		if strings.Contains(strings.ToLower(summary.Text), query) {
			results = append(results, summary)
			continue
		}
		for _, msg := range s.Messages(summary.ID) {
			if strings.Contains(strings.ToLower(msg.Text), query) {
				results = append(results, summary)
				break
			}
		}
	}
	return results
}

// =============================================================================
// INTERNAL STATE + WRITE POLICY
// =============================================================================

// setActive replaces the active pointer and message list and writes both.
// Caller holds s.mu.
func (s *Store) setActive(id ID, msgs []Message) {
	s.active = id
	s.messages = msgs
	if s.restoring {
		return
	}
	if id == "" {
		s.kv.Remove(activeKey)
		return
	}
	s.kv.Set(MessagesKey(id), nonNil(s.messages))
	s.kv.Set(activeKey, id)
}

// setSummaries replaces the summary list and writes it. Caller holds s.mu.
func (s *Store) setSummaries(summaries []ConversationSummary) {
	s.summaries = summaries
	if s.restoring {
		return
	}
	s.kv.Set(historyKey, nonNil(s.summaries))
}

func (s *Store) loadMessages(id ID) []Message {
	if id == "" {
		return nil
	}
	var stored []storedMessage
	if !s.kv.Get(MessagesKey(id), &stored) {
		return nil
	}
	now := s.now()
	msgs := make([]Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, m.normalize(now))
	}
	return msgs
}

func (s *Store) indexOf(id ID) int {
	if id == "" {
		return -1
	}
	for i, summary := range s.summaries {
		if summary.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) cloneSummaries() []ConversationSummary {
	return append([]ConversationSummary(nil), s.summaries...)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
