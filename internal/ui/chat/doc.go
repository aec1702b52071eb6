// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the agrichat terminal interface.

The Model is a single Bubble Tea program that switches between screens the
way the session routes dictate:

	/login, /signup   email and password forms
	location gate     shown once after sign-in until the user answers
	/chat             sidebar of conversations, messages, input
	/profile          theme, settings toggles, sign out

# Asynchronous Work

Questions, sign-in calls, weather lookups and dictation run as tea.Cmd
goroutines and report back as messages. The chat store is safe for
concurrent use, so a reply may arrive after the user has switched to
another conversation; the store files it under the conversation it
belongs to.

# Key Bindings

See DefaultKeyMap. The status bar shows the most useful bindings for the
focused pane.
*/
package chat
