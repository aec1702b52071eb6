// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/agrichat/internal/kvstore"
)

var (
	// ErrInvalidIdentity is returned by SignIn for an identity without a user id.
	ErrInvalidIdentity = errors.New("identity has no user id")
	// ErrInvalidCoordinates is returned by GrantLocation for out-of-range values.
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	// ErrInvalidTheme is returned by SetTheme for unknown themes.
	ErrInvalidTheme = errors.New("theme must be dark, light or auto")
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks identity, theme, location and settings for one process.
type Manager struct {
	kv           *kvstore.Store
	defaultTheme Theme
	now          func() time.Time
	logger       zerolog.Logger

	mu       sync.RWMutex
	identity *Identity
	theme    Theme
	location Location
	settings Settings
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultTheme sets the theme used when none is persisted.
func WithDefaultTheme(t Theme) Option {
	return func(m *Manager) {
		if parsed, ok := ParseTheme(string(t)); ok {
			m.defaultTheme = parsed
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager over kv. Call Init before use.
func NewManager(kv *kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		kv:           kv,
		defaultTheme: ThemeDark,
		now:          time.Now,
		logger:       log.Logger.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.theme = m.defaultTheme
	m.location = Location{Permission: PermissionPrompt}
	return m
}

// Init reads the persisted session. Invalid records are ignored and fall
// back to the signed-out, default state.
func (m *Manager) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identity = nil
	var id Identity
	if m.kv.Get(KeyUser, &id) {
		if id.valid() {
			m.identity = &id
		} else {
			m.logger.Warn().Msg("INVALID_IDENTITY")
		}
	}

	m.theme = m.defaultTheme
	var raw string
	if m.kv.Get(KeyTheme, &raw) {
		if t, ok := ParseTheme(raw); ok {
			m.theme = t
		}
	}

	m.location = Location{Permission: PermissionPrompt}
	var loc Location
	if m.kv.Get(KeyLocation, &loc) {
		m.location = loc.normalize()
	}

	m.settings = Settings{}
	var s Settings
	if m.kv.Get(KeySettings, &s) {
		m.settings = s
	}

	m.logger.Debug().
		Bool("signed_in", m.identity != nil).
		Str("theme", string(m.theme)).
		Str("location", string(m.location.Permission)).
		Msg("SESSION_INIT")
}

// =============================================================================
// IDENTITY
// =============================================================================

// Identity returns the signed-in identity.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return Identity{}, false
	}
	return *m.identity, true
}

// SignedIn reports whether an identity is present.
func (m *Manager) SignedIn() bool {
	_, ok := m.Identity()
	return ok
}

// UserID returns the identity key, or "" when signed out. It matches the
// signature the chat store expects for its identity lookup.
func (m *Manager) UserID() string {
	id, ok := m.Identity()
	if !ok {
		return ""
	}
	return id.Key()
}

// SignIn stores the identity in memory and in the key/value store.
func (m *Manager) SignIn(id Identity) error {
	if !id.valid() {
		return ErrInvalidIdentity
	}
	if id.SignedInAt.IsZero() {
		id.SignedInAt = m.now()
	}
	m.mu.Lock()
	m.identity = &id
	m.mu.Unlock()

	m.kv.Set(KeyUser, id)
	m.logger.Info().Int64("user_id", id.UserID).Msg("SIGNED_IN")
	return nil
}

// SignOut clears the identity. Conversations are left untouched.
func (m *Manager) SignOut() {
	m.mu.Lock()
	had := m.identity != nil
	m.identity = nil
	m.mu.Unlock()

	m.kv.Remove(KeyUser)
	if had {
		m.logger.Info().Msg("SIGNED_OUT")
	}
}

// Route applies the navigation gate: chat and profile need an identity, and
// the login and signup screens are skipped once signed in. Unknown routes
// land on the default screen for the current state.
func (m *Manager) Route(requested Route) Route {
	signedIn := m.SignedIn()
	switch {
	case requested.requiresIdentity() && !signedIn:
		return RouteLogin
	case requested.public() && signedIn:
		return RouteChat
	case requested.requiresIdentity() || requested.public():
		return requested
	case signedIn:
		return RouteChat
	default:
		return RouteLogin
	}
}

// =============================================================================
// THEME
// =============================================================================

// Theme returns the theme preference.
func (m *Manager) Theme() Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.theme
}

// SetTheme changes and persists the theme.
func (m *Manager) SetTheme(t Theme) error {
	parsed, ok := ParseTheme(string(t))
	if !ok {
		return errors.Wrapf(ErrInvalidTheme, "%q", t)
	}
	m.mu.Lock()
	m.theme = parsed
	m.mu.Unlock()
	m.kv.Set(KeyTheme, string(parsed))
	return nil
}

// ToggleTheme advances to the next theme and returns it.
func (m *Manager) ToggleTheme() Theme {
	m.mu.Lock()
	m.theme = m.theme.Next()
	t := m.theme
	m.mu.Unlock()
	m.kv.Set(KeyTheme, string(t))
	return t
}

// =============================================================================
// LOCATION
// =============================================================================

// Location returns the location gate state.
func (m *Manager) Location() Location {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.location
}

// NeedsLocationPrompt reports whether the permission gate should be shown.
func (m *Manager) NeedsLocationPrompt() bool {
	return m.Location().Permission == PermissionPrompt
}

// GrantLocation records permission with coordinates.
func (m *Manager) GrantLocation(lat, lon float64) error {
	if !validCoordinates(lat, lon) {
		return errors.Wrapf(ErrInvalidCoordinates, "lat=%v lon=%v", lat, lon)
	}
	m.setLocation(Location{
		Permission: PermissionGranted,
		Latitude:   lat,
		Longitude:  lon,
		UpdatedAt:  m.now(),
	})
	return nil
}

// DenyLocation records a refusal. The weather widget stays hidden.
func (m *Manager) DenyLocation() {
	m.setLocation(Location{Permission: PermissionDenied, UpdatedAt: m.now()})
}

// ResetLocation returns the gate to the prompt state.
func (m *Manager) ResetLocation() {
	m.mu.Lock()
	m.location = Location{Permission: PermissionPrompt}
	m.mu.Unlock()
	m.kv.Remove(KeyLocation)
}

func (m *Manager) setLocation(loc Location) {
	m.mu.Lock()
	m.location = loc
	m.mu.Unlock()
	m.kv.Set(KeyLocation, loc)
	m.logger.Debug().Str("permission", string(loc.Permission)).Msg("LOCATION_CHANGED")
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the settings toggles.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings applies fn to the settings and persists the result.
func (m *Manager) UpdateSettings(fn func(*Settings)) Settings {
	m.mu.Lock()
	fn(&m.settings)
	s := m.settings
	m.mu.Unlock()
	m.kv.Set(KeySettings, s)
	return s
}
