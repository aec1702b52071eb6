// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/agrichat/internal/clipboard"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/session"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/ui/styles"
	"github.com/jeranaias/agrichat/internal/voice"
	"github.com/jeranaias/agrichat/internal/weather"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators the interface drives. Weather, Recognizer and
// Clipboard may be nil; the matching controls are then hidden or report
// that the capability is unavailable.
type Deps struct {
	Store      *storage.Store
	Session    *session.Manager
	Auth       Authenticator
	Weather    *weather.Tracker
	Recognizer voice.Recognizer
	Clipboard  clipboard.Writer
	Config     *config.Config
}

// =============================================================================
// MODEL
// =============================================================================

type screen int

const (
	screenLogin screen = iota
	screenSignup
	screenLocation
	screenChat
	screenProfile
)

type pane int

const (
	paneInput pane = iota
	paneSidebar
)

// mode is a modal sub-state of the chat screen.
type mode int

const (
	modeNormal mode = iota
	modeRename
	modeConfirmDelete
	modeConfirmClear
)

// Model is the Bubble Tea model for the whole program.
type Model struct {
	deps   Deps
	cfg    config.Config
	theme  *styles.Theme
	keys   KeyMap
	logger zerolog.Logger

	screen screen
	width  int
	height int

	form authForm

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    pane
	mode     mode
	cursor   int
	target   storage.ID // conversation a rename or delete applies to
	draft    string     // input text saved while renaming
	pending  map[storage.ID]int
	showHelp bool

	voice       *voice.Controller
	voiceEvents chan voice.Event
	listening   bool

	weather    *weather.Current
	weatherErr error

	notice    string
	noticeErr bool
	noticeSeq int

	renderer      *glamour.TermRenderer
	rendererWidth int
	rendererStyle string
}

// New creates the model. The session and store must already be initialised.
func New(deps Deps) Model {
	cfg := *config.Default()
	if deps.Config != nil {
		cfg = *deps.Config
	}

	input := textinput.New()
	input.Placeholder = "Ask about crops, soil, pests or weather..."
	input.Prompt = "> "
	input.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		deps:     deps,
		cfg:      cfg,
		theme:    styles.NewTheme(deps.Session.Theme()),
		keys:     DefaultKeyMap(),
		logger:   log.Logger.With().Str("component", "tui").Logger(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		pending:  make(map[storage.ID]int),
	}
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Thinking

	if deps.Recognizer != nil {
		m.voiceEvents = make(chan voice.Event, 16)
		events := m.voiceEvents
		m.voice, _ = voice.NewController(deps.Recognizer, cfg.Voice.Lang, func(ev voice.Event) {
			select {
			case events <- ev:
			default:
				log.Warn().Str("state", ev.State.String()).Msg("DICTATION_EVENT_DROPPED")
			}
		})
	}

	m.navigate(session.RouteChat)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.voiceEvents != nil {
		cmds = append(cmds, waitVoice(m.voiceEvents))
	}
	if m.screen == screenChat {
		cmds = append(cmds, m.fetchWeather())
	}
	return tea.Batch(cmds...)
}

// Shutdown stops dictation and any weather fetch in flight.
func (m Model) Shutdown() {
	if m.voice != nil {
		m.voice.Close()
	}
	if m.deps.Weather != nil {
		m.deps.Weather.Stop()
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// navigate moves to the screen the session allows for r.
func (m *Model) navigate(r session.Route) tea.Cmd {
	m.mode = modeNormal
	switch m.deps.Session.Route(r) {
	case session.RouteLogin:
		m.screen = screenLogin
		m.form = newAuthForm(false, m.theme)
		return m.form.focusCmd()
	case session.RouteSignup:
		m.screen = screenSignup
		m.form = newAuthForm(true, m.theme)
		return m.form.focusCmd()
	case session.RouteProfile:
		m.screen = screenProfile
		m.input.Blur()
		return nil
	default:
		if m.deps.Session.NeedsLocationPrompt() {
			m.screen = screenLocation
			return nil
		}
		m.screen = screenChat
		m.focus = paneInput
		m.syncCursor()
		m.refreshViewport()
		return tea.Batch(m.input.Focus(), m.fetchWeather())
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// setNotice shows a transient status message.
func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	return expireNotice(m.noticeSeq)
}

func (m *Model) fetchWeather() tea.Cmd {
	loc := m.deps.Session.Location()
	if m.deps.Weather == nil || !loc.Granted() {
		return nil
	}
	return weatherCmd(m.deps.Weather, loc.Latitude, loc.Longitude)
}

// syncCursor points the sidebar cursor at the active conversation.
func (m *Model) syncCursor() {
	active := m.deps.Store.ActiveID()
	for i, s := range m.deps.Store.Summaries() {
		if s.ID == active {
			m.cursor = i
			return
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.deps.Store.Summaries())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// cursorID returns the conversation under the sidebar cursor.
func (m *Model) cursorID() (storage.ID, bool) {
	summaries := m.deps.Store.Summaries()
	if m.cursor < 0 || m.cursor >= len(summaries) {
		return "", false
	}
	return summaries[m.cursor].ID, true
}

// selectedID is the conversation a sidebar or global action applies to.
func (m *Model) selectedID() (storage.ID, bool) {
	if m.focus == paneSidebar {
		return m.cursorID()
	}
	id := m.deps.Store.ActiveID()
	return id, id != ""
}

func (m *Model) applyTheme(t session.Theme) {
	m.theme = styles.NewTheme(t)
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Thinking
	m.renderer = nil
	m.refreshViewport()
}

// sidebarVisible reports whether the terminal is wide enough for the sidebar.
func (m *Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	vpWidth := width
	if m.sidebarVisible() {
		vpWidth -= m.cfg.UI.SidebarWidth
	}
	// header, input border and line, status bar
	vpHeight := height - 4
	if vpWidth < 10 {
		vpWidth = 10
	}
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.input.Width = vpWidth - 4
	m.form.setWidth(width)
	m.refreshViewport()
}
