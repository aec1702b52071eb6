// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strconv"
	"strings"
	"time"
)

// Persisted keys.
const (
	KeyUser     = "user"
	KeyTheme    = "theme"
	KeyLocation = "location"
	KeySettings = "settings"
)

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the signed-in user.
type Identity struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Username   string    `json:"username,omitempty"`
	SignedInAt time.Time `json:"signedInAt"`
}

// Key is the identity as the history endpoints expect it.
func (i Identity) Key() string {
	return strconv.FormatInt(i.UserID, 10)
}

// DisplayName prefers the username and falls back to the email.
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.Email
}

func (i Identity) valid() bool {
	return i.UserID > 0
}

// =============================================================================
// THEME
// =============================================================================

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeAuto  Theme = "auto"
)

// ParseTheme accepts dark, light or auto in any case.
func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight, ThemeAuto:
		return t, true
	}
	return "", false
}

// Next cycles dark -> light -> auto -> dark.
func (t Theme) Next() Theme {
	switch t {
	case ThemeDark:
		return ThemeLight
	case ThemeLight:
		return ThemeAuto
	default:
		return ThemeDark
	}
}

// Resolve maps auto onto dark or light using the terminal background.
func (t Theme) Resolve(darkBackground bool) Theme {
	if t != ThemeAuto {
		return t
	}
	if darkBackground {
		return ThemeDark
	}
	return ThemeLight
}

// =============================================================================
// LOCATION
// =============================================================================

// Permission is the location permission state.
type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Location is the location gate state. Coordinates are only meaningful when
// Permission is granted.
type Location struct {
	Permission Permission `json:"permission"`
	Latitude   float64    `json:"latitude,omitempty"`
	Longitude  float64    `json:"longitude,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt,omitempty"`
}

// Granted reports whether coordinates are available.
func (l Location) Granted() bool {
	return l.Permission == PermissionGranted
}

func (l Location) normalize() Location {
	switch l.Permission {
	case PermissionGranted:
		if !validCoordinates(l.Latitude, l.Longitude) {
			return Location{Permission: PermissionPrompt}
		}
		return l
	case PermissionDenied:
		return Location{Permission: PermissionDenied, UpdatedAt: l.UpdatedAt}
	default:
		return Location{Permission: PermissionPrompt}
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings are the toggles shown on the profile screen. They are persisted
// but do not change any behaviour.
type Settings struct {
	DataSaver     bool `json:"dataSaver"`
	Notifications bool `json:"notifications"`
}

// =============================================================================
// ROUTES
// =============================================================================

// Route is a navigable screen.
type Route string

const (
	RouteLogin   Route = "/login"
	RouteSignup  Route = "/signup"
	RouteChat    Route = "/chat"
	RouteProfile Route = "/profile"
)

// requiresIdentity reports whether the route is gated on sign-in.
func (r Route) requiresIdentity() bool {
	return r == RouteChat || r == RouteProfile
}

func (r Route) public() bool {
	return r == RouteLogin || r == RouteSignup
}
