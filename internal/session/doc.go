// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the per-process client session: the signed-in
// identity, the colour theme, the location permission gate and the settings
// toggles.
//
// A Manager is constructed once at startup and passed to the CLI and TUI.
// Init reads the persisted state and SignOut is the teardown that clears the
// persisted identity.
//
// # Key Types
//
//   - Manager: Session state backed by the key/value store
//   - Identity: The signed-in user as returned by the backend
//   - Theme: dark, light or auto
//   - Location: Permission state plus granted coordinates
//   - Settings: Data Saver and Notifications toggles
//
// # Persisted Keys
//
//	user      Identity JSON, absent when signed out
//	theme     "dark" | "light" | "auto"
//	location  {"permission": ..., "latitude": ..., "longitude": ...}
//	settings  {"dataSaver": ..., "notifications": ...}
//
// # Usage
//
//	mgr := session.NewManager(kv)
//	mgr.Init()
//	switch mgr.Route(session.RouteChat) {
//	case session.RouteLogin:
//	    // show the login screen
//	}
package session
