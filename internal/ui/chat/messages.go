// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/gateway"
	"github.com/jeranaias/agrichat/internal/session"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/voice"
	"github.com/jeranaias/agrichat/internal/weather"
)

// noticeDuration is how long a transient notice stays in the status bar.
const noticeDuration = 4 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent by the caller when the config file changes.
type ConfigReloadedMsg struct {
	Config *config.Config
}

type replyMsg struct {
	turn  storage.Turn
	reply storage.Message
}

type authResultMsg struct {
	identity session.Identity
	signup   bool
	err      error
}

type weatherMsg struct {
	current *weather.Current
	err     error
}

type voiceMsg struct {
	event voice.Event
}

type noticeExpiredMsg struct {
	seq int
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// resolveCmd asks the assistant for turn's answer.
func resolveCmd(store *storage.Store, turn storage.Turn) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{turn: turn, reply: store.Resolve(context.Background(), turn)}
	}
}

// Authenticator signs users in and up against the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*gateway.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*gateway.AuthResult, error)
}

func loginCmd(auth Authenticator, email, password string) tea.Cmd {
	return func() tea.Msg {
		res, err := auth.Login(context.Background(), email, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{identity: session.Identity{UserID: res.UserID, Email: email}}
	}
}

func registerCmd(auth Authenticator, username, email, password string) tea.Cmd {
	return func() tea.Msg {
		res, err := auth.Register(context.Background(), username, email, password)
		if err != nil {
			return authResultMsg{signup: true, err: err}
		}
		return authResultMsg{
			signup:   true,
			identity: session.Identity{UserID: res.UserID, Email: email, Username: username},
		}
	}
}

func weatherCmd(t *weather.Tracker, lat, lon float64) tea.Cmd {
	return func() tea.Msg {
		cur, err := t.Update(context.Background(), lat, lon)
		return weatherMsg{current: cur, err: err}
	}
}

// waitVoice delivers the next dictation event.
func waitVoice(events <-chan voice.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return voiceMsg{event: ev}
	}
}

func expireNotice(seq int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}
