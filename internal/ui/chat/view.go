// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/agrichat/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	switch m.screen {
	case screenLogin, screenSignup:
		return m.viewAuth()
	case screenLocation:
		return m.viewLocation()
	case screenProfile:
		return m.viewProfile()
	default:
		return m.viewChat()
	}
}

func (m Model) center(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// =============================================================================
// AUTH, LOCATION, PROFILE
// =============================================================================

func (m Model) viewAuth() string {
	t := m.theme
	title := "Sign in to agrichat"
	switchHint := "C-n  create an account"
	action := "Sign in"
	if m.form.signup {
		title = "Create your agrichat account"
		switchHint = "C-n  back to sign in"
		action = "Sign up"
	}

	var sb strings.Builder
	sb.WriteString(t.FormTitle.Render(title) + "\n")
	for i, in := range m.form.inputs {
		label := t.FormLabel.Render(m.form.labels[i])
		if i == m.form.focus {
			label = t.FormFocused.Render("> " + m.form.labels[i])
		}
		sb.WriteString(label + "\n" + in.View() + "\n\n")
	}

	button := t.Button.Render(action)
	if m.form.lastField() {
		button = t.ButtonActive.Render(action)
	}
	if m.form.busy {
		button = m.spinner.View() + " " + t.Muted.Render("Please wait...")
	}
	sb.WriteString(button + "\n")
	if m.form.err != "" {
		sb.WriteString("\n" + t.ErrorText.Render(m.form.err) + "\n")
	}
	sb.WriteString("\n" + t.Muted.Render("Tab  next field    Enter  submit    "+switchHint))

	return m.center(t.FormBox.Render(sb.String()))
}

func (m Model) viewLocation() string {
	t := m.theme
	body := t.FormTitle.Render("Share your location?") + "\n" +
		"agrichat uses your location to show the local weather next to\n" +
		"your chats. Coordinates come from your configuration file.\n\n" +
		t.ShortcutKey.Render("a") + " allow    " + t.ShortcutKey.Render("d") + " deny"
	return m.center(t.FormBox.Render(body))
}

func (m Model) viewProfile() string {
	t := m.theme
	sess := m.deps.Session
	id, _ := sess.Identity()
	settings := sess.Settings()
	loc := sess.Location()

	toggle := func(on bool) string {
		if on {
			return t.ToggleOn.Render("[on] ")
		}
		return t.Toggle.Render("[off]")
	}

	location := string(loc.Permission)
	if loc.Granted() {
		location = fmt.Sprintf("granted (%.4f, %.4f)", loc.Latitude, loc.Longitude)
	}

	rows := [][2]string{
		{"Name", id.DisplayName()},
		{"Email", id.Email},
		{"User ID", id.Key()},
		{"Theme", string(sess.Theme())},
		{"Location", location},
		{"Data Saver", toggle(settings.DataSaver)},
		{"Notifications", toggle(settings.Notifications)},
	}

	var sb strings.Builder
	sb.WriteString(t.FormTitle.Render("Profile & settings") + "\n")
	for _, r := range rows {
		sb.WriteString(t.FormLabel.Render(util.PadWidth(r[0], 15)) + r[1] + "\n")
	}
	sb.WriteString("\n" + t.Muted.Render(strings.Join(helpLine(
		m.keys.ToggleTheme, m.keys.ToggleDataSaver, m.keys.ToggleNotifications,
		m.keys.ResetLocation, m.keys.SignOut, m.keys.Back,
	), "   ")))
	if m.notice != "" {
		sb.WriteString("\n\n" + t.Notice.Render(m.notice))
	}
	return m.center(t.FormBox.Render(sb.String()))
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

func (m Model) viewChat() string {
	main := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.viewInput())
	body := main
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.viewStatus())
}

func (m Model) viewHeader() string {
	t := m.theme
	left := t.HeaderTitle.Render("agrichat")
	if id, ok := m.deps.Session.Identity(); ok {
		left += t.HeaderUser.Render("  " + id.DisplayName())
	}
	right := m.weatherWidget()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
		right = ""
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// weatherWidget is hidden unless location access was granted.
func (m Model) weatherWidget() string {
	if m.deps.Weather == nil || !m.deps.Session.Location().Granted() {
		return ""
	}
	switch {
	case m.weather != nil:
		return m.theme.Weather.Render(m.weather.String())
	case m.weatherErr != nil:
		return m.theme.Muted.Render("weather unavailable")
	default:
		return m.theme.Muted.Render("loading weather...")
	}
}

func (m Model) viewSidebar() string {
	t := m.theme
	width := m.cfg.UI.SidebarWidth - 3 // border and padding
	height := m.viewport.Height + 2

	var lines []string
	lines = append(lines, t.SidebarTitle.Render("Conversations"))

	summaries := m.deps.Store.Summaries()
	active := m.deps.Store.ActiveID()
	if len(summaries) == 0 {
		lines = append(lines, t.Muted.Render("No conversations yet"))
	}

	visible := height - 3
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(summaries) && i < start+visible; i++ {
		s := summaries[i]
		marker := "  "
		if s.ID == active {
			marker = "* "
		}
		text := marker + util.TruncateWidth(util.SingleLine(s.Text), width-2)
		switch {
		case m.focus == paneSidebar && i == m.cursor:
			lines = append(lines, t.SidebarCursor.Render(util.PadWidth(text, width)))
		case s.ID == active:
			lines = append(lines, t.SidebarActive.Render(text))
		default:
			lines = append(lines, t.SidebarItem.Render(text))
		}
	}

	return t.Sidebar.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) viewInput() string {
	t := m.theme
	var prefix string
	switch {
	case m.listening:
		prefix = t.Listening.Render("* Listening... ") + " "
	case m.pending[m.deps.Store.ActiveID()] > 0:
		prefix = m.spinner.View() + t.Thinking.Render(" Thinking... ") + " "
	}
	return t.InputContainer.Width(m.viewport.Width).Render(prefix + m.input.View())
}

func (m Model) viewStatus() string {
	t := m.theme
	var text string
	switch {
	case m.mode == modeConfirmDelete:
		text = t.ErrorText.Render("Delete this conversation? (y/N)")
	case m.mode == modeConfirmClear:
		text = t.ErrorText.Render("Delete ALL conversations? (y/N)")
	case m.notice != "" && m.noticeErr:
		text = t.ErrorText.Render(m.notice)
	case m.notice != "":
		text = t.Notice.Render(m.notice)
	default:
		text = strings.Join(m.helpItems(), "  ")
	}
	return t.StatusBar.Width(m.width).Render(util.TruncateWidth(text, m.width-2))
}

func (m Model) helpItems() []string {
	k := m.keys
	if m.mode == modeRename {
		return helpLine(k.Submit, k.Back)
	}
	if m.focus == paneSidebar {
		open := k.Submit
		open.SetHelp("Enter", "open")
		return helpLine(open, k.Up, k.Down, k.Delete, k.ClearAll, k.Rename, k.Share, k.Back)
	}
	if m.showHelp {
		return helpLine(k.Submit, k.SwitchFocus, k.NewChat, k.Rename, k.Share, k.Voice,
			k.Weather, k.Profile, k.PageUp, k.PageDown, k.Help, k.Quit)
	}
	return helpLine(k.Submit, k.SwitchFocus, k.NewChat, k.Voice, k.Profile, k.Help, k.Quit)
}
