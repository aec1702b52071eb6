// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/agrichat/internal/session"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Preference is the session setting; IsDark is what it resolved to.
	Preference   session.Theme
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderUser  lipgloss.Style
	StatusBar   lipgloss.Style
	Notice      lipgloss.Style
	ErrorText   lipgloss.Style
	Muted       lipgloss.Style
	ShortcutKey lipgloss.Style
	Help        lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar       lipgloss.Style
	SidebarTitle  lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style
	SidebarCursor lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble lipgloss.Style
	BotBubble  lipgloss.Style
	UserLabel  lipgloss.Style
	BotLabel   lipgloss.Style
	Timestamp  lipgloss.Style
	Thinking   lipgloss.Style
	EmptyChat  lipgloss.Style

	// ==========================================================================
	// INPUT AND FORMS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Listening      lipgloss.Style
	FormBox        lipgloss.Style
	FormTitle      lipgloss.Style
	FormLabel      lipgloss.Style
	FormFocused    lipgloss.Style
	Button         lipgloss.Style
	ButtonActive   lipgloss.Style

	// ==========================================================================
	// WIDGETS
	// ==========================================================================

	Weather             lipgloss.Style
	QuickAction         lipgloss.Style
	QuickActionSelected lipgloss.Style
	Toggle              lipgloss.Style
	ToggleOn            lipgloss.Style
}

// NewTheme creates a theme for the given preference. Auto follows the
// terminal background.
func NewTheme(pref session.Theme) *Theme {
	return newTheme(pref, termenv.HasDarkBackground())
}

func newTheme(pref session.Theme, terminalDark bool) *Theme {
	if _, ok := session.ParseTheme(string(pref)); !ok {
		pref = session.ThemeAuto
	}
	isDark := pref.Resolve(terminalDark) == session.ThemeDark
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Preference:   pref,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle is the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Leaf)
	t.HeaderUser = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Notice = lipgloss.NewStyle().
		Foreground(Wheat)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SidebarActive = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)
	t.SidebarCursor = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Leaf)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)
	t.BotBubble = lipgloss.NewStyle().
		Foreground(BotBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(BotBubbleBorder).
		Padding(0, 1).
		MarginRight(4)
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Sky).
		Bold(true)
	t.BotLabel = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Thinking = lipgloss.NewStyle().
		Foreground(Soil).
		Italic(true)
	t.EmptyChat = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(1, 2)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)
	t.Listening = lipgloss.NewStyle().
		Foreground(Wheat).
		Bold(true)
	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Leaf).
		Padding(1, 3)
	t.FormTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Leaf).
		MarginBottom(1)
	t.FormLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.FormFocused = lipgloss.NewStyle().
		Foreground(Leaf)
	t.Button = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Overlay).
		Padding(0, 2)
	t.ButtonActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Leaf).
		Bold(true).
		Padding(0, 2)

	t.Weather = lipgloss.NewStyle().
		Foreground(Sky)
	t.QuickAction = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.QuickActionSelected = t.QuickAction.Copy().
		Foreground(Leaf).
		BorderForeground(Leaf)
	t.Toggle = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ToggleOn = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
