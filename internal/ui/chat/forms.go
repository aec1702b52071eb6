// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/agrichat/internal/ui/styles"
)

// =============================================================================
// AUTH FORM
// =============================================================================

// authForm is the login or signup form. Signup has a username field first.
type authForm struct {
	signup bool
	inputs []textinput.Model
	labels []string
	focus  int
	err    string
	busy   bool
}

func newAuthForm(signup bool, theme *styles.Theme) authForm {
	f := authForm{signup: signup}
	if signup {
		f.add("Username", "your name", false, theme)
	}
	f.add("Email", "you@example.com", false, theme)
	f.add("Password", "", true, theme)
	return f
}

func (f *authForm) add(label, placeholder string, secret bool, theme *styles.Theme) {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 32
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	ti.TextStyle = theme.FormFocused
	f.inputs = append(f.inputs, ti)
	f.labels = append(f.labels, label)
}

func (f *authForm) setWidth(width int) {
	w := width / 2
	if w < 20 {
		w = 20
	}
	if w > 48 {
		w = 48
	}
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

// focusCmd focuses the current field and blurs the others.
func (f *authForm) focusCmd() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *authForm) move(delta int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (f.focus + delta + n) % n
	return f.focusCmd()
}

func (f *authForm) lastField() bool {
	return f.focus == len(f.inputs)-1
}

func (f *authForm) value(label string) string {
	for i, l := range f.labels {
		if l == label {
			return strings.TrimSpace(f.inputs[i].Value())
		}
	}
	return ""
}

// validate checks the fields before anything is sent.
func (f *authForm) validate() string {
	if f.signup && f.value("Username") == "" {
		return "Please enter a username."
	}
	email := f.value("Email")
	if email == "" || !strings.Contains(email, "@") {
		return "Please enter a valid email address."
	}
	if f.inputs[len(f.inputs)-1].Value() == "" {
		return "Please enter your password."
	}
	return ""
}

func (f *authForm) password() string {
	return f.inputs[len(f.inputs)-1].Value()
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}
