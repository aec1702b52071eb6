// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jeranaias/agrichat/internal/gateway"
	"github.com/jeranaias/agrichat/internal/session"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/util"
	"github.com/jeranaias/agrichat/internal/voice"
	"github.com/jeranaias/agrichat/internal/weather"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin, screenSignup:
			return m.updateAuth(msg)
		case screenLocation:
			return m.updateLocation(msg)
		case screenProfile:
			return m.updateProfile(msg)
		default:
			return m.updateChat(msg)
		}

	case replyMsg:
		return m.handleReply(msg)

	case authResultMsg:
		return m.handleAuth(msg)

	case weatherMsg:
		return m.handleWeather(msg)

	case voiceMsg:
		cmd := m.handleVoice(msg.event)
		return m, tea.Batch(cmd, waitVoice(m.voiceEvents))

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.cfg = *msg.Config
			m.renderer = nil
			m.resize(m.width, m.height)
			m.logger.Info().Msg("CONFIG_APPLIED")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch {
	case m.screen == screenLogin || m.screen == screenSignup:
		return m, m.form.update(msg)
	case m.screen == screenChat && m.focus == paneInput:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// AUTH SCREENS
// =============================================================================

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.ToggleAuth):
		target := session.RouteSignup
		if m.screen == screenSignup {
			target = session.RouteLogin
		}
		return m, m.navigate(target)
	case key.Matches(msg, m.keys.SwitchFocus):
		return m, m.form.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return m, m.form.move(-1)
	case key.Matches(msg, m.keys.Submit):
		if !m.form.lastField() {
			return m, m.form.move(1)
		}
		return m, m.submitAuth()
	}
	return m, m.form.update(msg)
}

func (m *Model) submitAuth() tea.Cmd {
	if problem := m.form.validate(); problem != "" {
		m.form.err = problem
		return nil
	}
	if m.deps.Auth == nil {
		m.form.err = "No backend is configured."
		return nil
	}
	m.form.err = ""
	m.form.busy = true
	email := m.form.value("Email")
	if m.form.signup {
		return registerCmd(m.deps.Auth, m.form.value("Username"), email, m.form.password())
	}
	return loginCmd(m.deps.Auth, email, m.form.password())
}

func (m Model) handleAuth(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.form.busy = false
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Bool("signup", msg.signup).Msg("AUTH_FAILED")
		var authErr *gateway.AuthError
		if errors.As(msg.err, &authErr) {
			m.form.err = authErr.Message
		} else if msg.signup {
			m.form.err = "Could not create your account. Please try again."
		} else {
			m.form.err = "Could not sign in. Please check your connection and try again."
		}
		return m, nil
	}
	if err := m.deps.Session.SignIn(msg.identity); err != nil {
		m.form.err = "The server returned an invalid account."
		return m, nil
	}
	cmd := m.navigate(session.RouteChat)
	return m, tea.Batch(cmd, m.setNotice("Welcome, "+msg.identity.DisplayName()+"!", false))
}

// =============================================================================
// LOCATION GATE
// =============================================================================

func (m Model) updateLocation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Allow):
		if err := m.deps.Session.GrantLocation(m.cfg.Weather.Latitude, m.cfg.Weather.Longitude); err != nil {
			m.logger.Warn().Err(err).Msg("LOCATION_GRANT_FAILED")
			m.deps.Session.DenyLocation()
		}
		return m, m.navigate(session.RouteChat)
	case key.Matches(msg, m.keys.Deny):
		m.deps.Session.DenyLocation()
		m.weather = nil
		return m, m.navigate(session.RouteChat)
	}
	return m, nil
}

// =============================================================================
// PROFILE
// =============================================================================

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.deps.Session
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Profile):
		return m, m.navigate(session.RouteChat)
	case key.Matches(msg, m.keys.ToggleTheme):
		m.applyTheme(sess.ToggleTheme())
	case key.Matches(msg, m.keys.ToggleDataSaver):
		sess.UpdateSettings(func(s *session.Settings) { s.DataSaver = !s.DataSaver })
	case key.Matches(msg, m.keys.ToggleNotifications):
		sess.UpdateSettings(func(s *session.Settings) { s.Notifications = !s.Notifications })
	case key.Matches(msg, m.keys.ResetLocation):
		sess.ResetLocation()
		m.weather, m.weatherErr = nil, nil
		return m, m.setNotice("Location permission will be asked again.", false)
	case key.Matches(msg, m.keys.SignOut):
		if m.voice != nil {
			m.voice.Stop()
		}
		sess.SignOut()
		return m, m.navigate(session.RouteLogin)
	}
	return m, nil
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeRename:
		return m.updateRename(msg)
	case modeConfirmDelete, modeConfirmClear:
		return m.updateConfirm(msg)
	}

	for i, b := range m.keys.QuickActions {
		if key.Matches(msg, b) {
			return m, m.send(QuickActions[i])
		}
	}

	switch {
	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == paneInput && m.sidebarVisible() {
			m.focus = paneSidebar
			m.input.Blur()
			m.syncCursor()
			return m, nil
		}
		m.focus = paneInput
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()
	case key.Matches(msg, m.keys.Rename):
		return m, m.startRename()
	case key.Matches(msg, m.keys.Share):
		return m, m.share()
	case key.Matches(msg, m.keys.Voice):
		return m, m.toggleVoice()
	case key.Matches(msg, m.keys.Profile):
		return m, m.navigate(session.RouteProfile)
	case key.Matches(msg, m.keys.Weather):
		if cmd := m.fetchWeather(); cmd != nil {
			return m, cmd
		}
		return m, m.setNotice("Weather is off. Allow location access from the profile screen.", false)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == paneSidebar {
		return m.updateSidebar(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		m.input.Reset()
		return m, m.send(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focus = paneInput
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.deps.Store.Summaries())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		id, ok := m.cursorID()
		if !ok {
			return m, nil
		}
		if err := m.deps.Store.LoadChat(id); err != nil {
			return m, m.setNotice("That conversation no longer exists.", true)
		}
		m.focus = paneInput
		m.refreshViewport()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.cursorID(); ok {
			m.target = id
			m.mode = modeConfirmDelete
		}
	case key.Matches(msg, m.keys.ClearAll):
		if len(m.deps.Store.Summaries()) > 0 {
			m.mode = modeConfirmClear
		}
	}
	return m, nil
}

// send starts a turn and asks the assistant in the background.
func (m *Model) send(text string) tea.Cmd {
	turn, err := m.deps.Store.BeginTurn(text)
	if err != nil {
		return nil
	}
	m.pending[turn.ConversationID]++
	m.focus = paneInput
	m.syncCursor()
	m.refreshViewport()
	return tea.Batch(resolveCmd(m.deps.Store, turn), m.input.Focus())
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	id := msg.turn.ConversationID
	if m.pending[id] > 1 {
		m.pending[id]--
	} else {
		delete(m.pending, id)
	}
	m.refreshViewport()
	if id != m.deps.Store.ActiveID() {
		if summary, ok := m.deps.Store.Summary(id); ok {
			return m, m.setNotice("New reply in \""+util.TruncateRunes(summary.Text, 30)+"\"", false)
		}
	}
	return m, nil
}

func (m *Model) newChat() tea.Cmd {
	m.deps.Store.NewChat()
	m.cursor = 0
	m.focus = paneInput
	m.refreshViewport()
	return m.input.Focus()
}

// =============================================================================
// RENAME, DELETE, CLEAR
// =============================================================================

func (m *Model) startRename() tea.Cmd {
	id, ok := m.selectedID()
	if !ok {
		return m.setNotice("Nothing to rename yet.", false)
	}
	summary, _ := m.deps.Store.Summary(id)
	m.target = id
	m.mode = modeRename
	m.draft = m.input.Value()
	m.input.SetValue(summary.Text)
	m.input.CursorEnd()
	m.input.Prompt = "Rename: "
	return m.input.Focus()
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.endRename()
		return m, m.setNotice("Rename cancelled.", false)
	case key.Matches(msg, m.keys.Submit):
		ok := m.deps.Store.Rename(m.target, m.input.Value())
		m.endRename()
		if !ok {
			return m, m.setNotice("Rename cancelled.", false)
		}
		return m, m.setNotice("Conversation renamed.", false)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endRename() {
	m.mode = modeNormal
	m.input.Prompt = "> "
	m.input.SetValue(m.draft)
	m.draft = ""
	if m.focus == paneSidebar {
		m.input.Blur()
	}
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	confirmed := msg.String() == "y" || msg.String() == "Y"
	wasClear := m.mode == modeConfirmClear
	m.mode = modeNormal
	if !confirmed {
		return m, nil
	}

	var notice string
	if wasClear {
		m.deps.Store.ClearAll()
		m.pending = make(map[storage.ID]int)
		notice = "All conversations cleared."
	} else {
		if err := m.deps.Store.Delete(m.target); err != nil {
			return m, m.setNotice("That conversation no longer exists.", true)
		}
		delete(m.pending, m.target)
		notice = "Conversation deleted."
	}
	m.syncCursor()
	m.refreshViewport()
	return m, m.setNotice(notice, false)
}

// =============================================================================
// SHARE
// =============================================================================

func (m *Model) share() tea.Cmd {
	id, ok := m.selectedID()
	if !ok {
		return m.setNotice("Nothing to share yet.", false)
	}
	if _, err := m.deps.Store.Share(id, m.deps.Clipboard); err != nil {
		return m.setNotice("Could not copy the chat to the clipboard.", true)
	}
	return m.setNotice("Chat copied to clipboard.", false)
}

// =============================================================================
// VOICE
// =============================================================================

func (m *Model) toggleVoice() tea.Cmd {
	if m.voice == nil || !m.voice.Supported() {
		return m.setNotice("Voice input is not supported on this system.", true)
	}
	if m.voice.State() == voice.Listening {
		m.voice.Stop()
		return nil
	}
	m.voice.Start()
	return nil
}

func (m *Model) handleVoice(ev voice.Event) tea.Cmd {
	m.listening = ev.State == voice.Listening
	switch ev.State {
	case voice.Error:
		if ev.Err == nil || errors.Is(ev.Err, voice.ErrNoSpeech) {
			return m.setNotice("No speech detected.", false)
		}
		return m.setNotice("Voice input error: "+ev.Err.Error(), true)
	case voice.Idle:
		if text := strings.TrimSpace(ev.Transcript); text != "" {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
	}
	return nil
}

// =============================================================================
// WEATHER
// =============================================================================

func (m Model) handleWeather(msg weatherMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, weather.ErrSuperseded) {
		return m, nil
	}
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Msg("WEATHER_FAILED")
		m.weatherErr = msg.err
		return m, nil
	}
	m.weather, m.weatherErr = msg.current, nil
	return m, nil
}
