// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agrichat/internal/kvstore"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *kvstore.MemoryBackend, *kvstore.Store) {
	t.Helper()
	mem := kvstore.NewMemoryBackend()
	kv := kvstore.New(mem)
	m := NewManager(kv, WithClock(func() time.Time { return fixedNow }))
	m.Init()
	return m, mem, kv
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestManager_SignInPersists(t *testing.T) {
	m, _, kv := newTestManager(t)
	assert.False(t, m.SignedIn())
	assert.Equal(t, "", m.UserID())

	require.NoError(t, m.SignIn(Identity{UserID: 42, Email: "ravi@example.com", Username: "ravi"}))
	assert.True(t, m.SignedIn())
	assert.Equal(t, "42", m.UserID())

	id, ok := m.Identity()
	require.True(t, ok)
	assert.Equal(t, "ravi", id.DisplayName())
	assert.True(t, id.SignedInAt.Equal(fixedNow))

	restored := NewManager(kv)
	restored.Init()
	got, ok := restored.Identity()
	require.True(t, ok)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "ravi@example.com", got.Email)
}

func TestManager_SignInRejectsMissingUserID(t *testing.T) {
	m, _, kv := newTestManager(t)
	assert.ErrorIs(t, m.SignIn(Identity{Email: "x@example.com"}), ErrInvalidIdentity)
	assert.False(t, m.SignedIn())
	assert.False(t, kv.Has(KeyUser))
}

func TestManager_SignOutClearsPersistedIdentity(t *testing.T) {
	m, _, kv := newTestManager(t)
	require.NoError(t, m.SignIn(Identity{UserID: 7, Email: "a@b.c"}))
	m.SignOut()

	assert.False(t, m.SignedIn())
	assert.False(t, kv.Has(KeyUser))

	// Signing out twice is harmless.
	m.SignOut()
}

func TestManager_InitIgnoresInvalidIdentity(t *testing.T) {
	m, mem, _ := newTestManager(t)
	mem.PutRaw(KeyUser, []byte(`{"email":"no-id@example.com"}`))
	m.Init()
	assert.False(t, m.SignedIn())

	mem.PutRaw(KeyUser, []byte(`not json`))
	m.Init()
	assert.False(t, m.SignedIn())
}

func TestIdentity_DisplayNameFallsBackToEmail(t *testing.T) {
	assert.Equal(t, "e@x.org", Identity{UserID: 1, Email: "e@x.org"}.DisplayName())
}

// =============================================================================
// ROUTE TESTS
// =============================================================================

func TestManager_Route(t *testing.T) {
	m, _, _ := newTestManager(t)

	signedOut := map[Route]Route{
		RouteChat:    RouteLogin,
		RouteProfile: RouteLogin,
		RouteLogin:   RouteLogin,
		RouteSignup:  RouteSignup,
		"/":          RouteLogin,
		"/elsewhere": RouteLogin,
	}
	for in, want := range signedOut {
		assert.Equal(t, want, m.Route(in), "signed out: %s", in)
	}

	require.NoError(t, m.SignIn(Identity{UserID: 1, Email: "a@b.c"}))
	signedIn := map[Route]Route{
		RouteChat:    RouteChat,
		RouteProfile: RouteProfile,
		RouteLogin:   RouteChat,
		RouteSignup:  RouteChat,
		"/":          RouteChat,
	}
	for in, want := range signedIn {
		assert.Equal(t, want, m.Route(in), "signed in: %s", in)
	}
}

// =============================================================================
// THEME TESTS
// =============================================================================

func TestManager_ThemeDefaultsAndPersists(t *testing.T) {
	m, _, kv := newTestManager(t)
	assert.Equal(t, ThemeDark, m.Theme())

	require.NoError(t, m.SetTheme("LIGHT"))
	assert.Equal(t, ThemeLight, m.Theme())

	restored := NewManager(kv)
	restored.Init()
	assert.Equal(t, ThemeLight, restored.Theme())
}

func TestManager_SetThemeRejectsUnknown(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.ErrorIs(t, m.SetTheme("sepia"), ErrInvalidTheme)
	assert.Equal(t, ThemeDark, m.Theme())
}

func TestManager_ToggleThemeCycles(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.Equal(t, ThemeLight, m.ToggleTheme())
	assert.Equal(t, ThemeAuto, m.ToggleTheme())
	assert.Equal(t, ThemeDark, m.ToggleTheme())
}

func TestManager_WithDefaultTheme(t *testing.T) {
	kv := kvstore.New(kvstore.NewMemoryBackend())
	m := NewManager(kv, WithDefaultTheme("auto"))
	m.Init()
	assert.Equal(t, ThemeAuto, m.Theme())

	kv.Set(KeyTheme, "purple")
	m.Init()
	assert.Equal(t, ThemeAuto, m.Theme(), "unknown persisted theme falls back to default")
}

func TestTheme_Resolve(t *testing.T) {
	assert.Equal(t, ThemeDark, ThemeAuto.Resolve(true))
	assert.Equal(t, ThemeLight, ThemeAuto.Resolve(false))
	assert.Equal(t, ThemeLight, ThemeLight.Resolve(true))
}

// =============================================================================
// LOCATION TESTS
// =============================================================================

func TestManager_LocationGate(t *testing.T) {
	m, _, kv := newTestManager(t)
	assert.True(t, m.NeedsLocationPrompt())

	require.NoError(t, m.GrantLocation(17.385, 78.4867))
	loc := m.Location()
	assert.True(t, loc.Granted())
	assert.Equal(t, 17.385, loc.Latitude)
	assert.False(t, m.NeedsLocationPrompt())

	restored := NewManager(kv)
	restored.Init()
	assert.Equal(t, loc.Latitude, restored.Location().Latitude)
	assert.True(t, restored.Location().Granted())

	m.DenyLocation()
	assert.Equal(t, PermissionDenied, m.Location().Permission)
	assert.False(t, m.Location().Granted())
	assert.Zero(t, m.Location().Latitude)

	m.ResetLocation()
	assert.True(t, m.NeedsLocationPrompt())
	assert.False(t, kv.Has(KeyLocation))
}

func TestManager_GrantLocationValidates(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.ErrorIs(t, m.GrantLocation(91, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, m.GrantLocation(0, -181), ErrInvalidCoordinates)
	assert.True(t, m.NeedsLocationPrompt())
}

func TestManager_InitNormalizesLocation(t *testing.T) {
	m, mem, _ := newTestManager(t)

	mem.PutRaw(KeyLocation, []byte(`{"permission":"granted","latitude":200,"longitude":0}`))
	m.Init()
	assert.True(t, m.NeedsLocationPrompt())

	mem.PutRaw(KeyLocation, []byte(`{"permission":"maybe"}`))
	m.Init()
	assert.True(t, m.NeedsLocationPrompt())

	mem.PutRaw(KeyLocation, []byte(`{"permission":"denied","latitude":10}`))
	m.Init()
	assert.Equal(t, PermissionDenied, m.Location().Permission)
	assert.Zero(t, m.Location().Latitude)
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestManager_SettingsPersist(t *testing.T) {
	m, _, kv := newTestManager(t)
	assert.Equal(t, Settings{}, m.Settings())

	got := m.UpdateSettings(func(s *Settings) { s.DataSaver = true })
	assert.True(t, got.DataSaver)
	assert.False(t, got.Notifications)

	restored := NewManager(kv)
	restored.Init()
	assert.Equal(t, Settings{DataSaver: true}, restored.Settings())
}

func TestManager_StorageFaultsDegrade(t *testing.T) {
	kv := kvstore.New(nil)
	m := NewManager(kv)
	m.Init()

	assert.False(t, m.SignedIn())
	require.NoError(t, m.SignIn(Identity{UserID: 3, Email: "z@z.z"}))
	assert.True(t, m.SignedIn(), "in-memory state survives an unavailable store")
}
