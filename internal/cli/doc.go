// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the agrichat command line.
//
// Running agrichat without a subcommand starts the terminal UI. The
// subcommands share the same session, conversation store and backend client,
// so a conversation started in the TUI can be continued with "agrichat chat"
// or exported with "agrichat history export".
//
// # Commands
//
//	agrichat                     Start the terminal UI
//	agrichat ask <question>      Ask one question
//	agrichat chat                Line oriented chat with slash commands
//	agrichat login | register    Sign in or create an account
//	agrichat logout | whoami     Sign out or show the current identity
//	agrichat history ...         List, search, show, rename, delete, share, export
//	agrichat weather             Current weather for the saved location
//	agrichat status              Probe the backend and the weather service
//
// # Global Flags
//
//	--config     Config file (default ~/.agrichat/config.toml)
//	--log-level  trace, debug, info, warn, error or disabled
//	--api-url    Backend base URL
//	--storage    file, sqlite, redis or memory
//	--json       Machine readable output where supported
package cli
