// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Quit        key.Binding
	Submit      key.Binding
	SwitchFocus key.Binding
	PrevField   key.Binding
	Back        key.Binding

	NewChat key.Binding
	Rename  key.Binding
	Share   key.Binding
	Voice   key.Binding
	Profile key.Binding
	Weather key.Binding
	Help    key.Binding

	PageUp   key.Binding
	PageDown key.Binding

	// Sidebar
	Up       key.Binding
	Down     key.Binding
	Delete   key.Binding
	ClearAll key.Binding

	// Auth forms
	ToggleAuth key.Binding

	// Location gate
	Allow key.Binding
	Deny  key.Binding

	// Profile
	ToggleTheme         key.Binding
	ToggleDataSaver     key.Binding
	ToggleNotifications key.Binding
	ResetLocation       key.Binding
	SignOut             key.Binding

	QuickActions []key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
		Submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "send")),
		SwitchFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "sidebar")),
		PrevField:   key.NewBinding(key.WithKeys("shift+tab")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "back")),

		NewChat: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("C-n", "new chat")),
		Rename:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "rename")),
		Share:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "share")),
		Voice:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("C-t", "voice")),
		Profile: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("C-p", "profile")),
		Weather: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("C-w", "weather")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "help")),

		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("PgDn", "scroll down")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "previous")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "next")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		ClearAll: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "clear all")),

		ToggleAuth: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("C-n", "switch sign in / sign up")),

		Allow: key.NewBinding(key.WithKeys("a", "y", "enter"), key.WithHelp("a", "allow")),
		Deny:  key.NewBinding(key.WithKeys("d", "n"), key.WithHelp("d", "deny")),

		ToggleTheme:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		ToggleDataSaver:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "data saver")),
		ToggleNotifications: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notifications")),
		ResetLocation:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "reset location")),
		SignOut:             key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
	}
	for i := range QuickActions {
		k := "alt+" + string(rune('1'+i))
		km.QuickActions = append(km.QuickActions, key.NewBinding(key.WithKeys(k), key.WithHelp(k, QuickActions[i])))
	}
	return km
}

// helpLine renders bindings as "key desc" pairs.
func helpLine(bindings ...key.Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		out = append(out, h.Key+" "+h.Desc)
	}
	return out
}

// QuickActions are preset questions offered on an empty conversation.
var QuickActions = []string{
	"Which crops suit this season?",
	"How can I improve my soil fertility?",
	"Organic pest control for vegetables",
	"When should I irrigate my paddy field?",
}
