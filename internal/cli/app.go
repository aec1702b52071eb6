// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/gateway"
	"github.com/jeranaias/agrichat/internal/kvstore"
	"github.com/jeranaias/agrichat/internal/logging"
	"github.com/jeranaias/agrichat/internal/session"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/weather"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
	apiURL     string
	storage    string
	jsonOutput bool
}

// apply layers the command line flags over cfg and revalidates it.
func (o *globalOptions) apply(cfg *config.Config) error {
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = strings.TrimSuffix(o.apiURL, "/")
	}
	if o.storage != "" {
		cfg.Storage.Backend = o.storage
	}
	return cfg.Validate()
}

// App is everything a command needs, built once per invocation.
type App struct {
	Config  *config.Config
	KV      *kvstore.Store
	Session *session.Manager
	Store   *storage.Store
	Gateway *gateway.Client
	Weather *weather.Client

	// ConfigPath is the file the config was read from, empty for defaults.
	ConfigPath string

	logCloser io.Closer
	logger    zerolog.Logger
	faults    atomic.Int64
}

// openApp loads configuration, installs logging and rehydrates the session
// and conversation store. Warnings go to stderr; only an unusable config is
// fatal.
func openApp(opts *globalOptions, stderr io.Writer) (*App, error) {
	cfg, err := config.Load(opts.configPath)
	if cfg == nil {
		return nil, &ConfigError{Err: err}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s %v (using defaults)\n", WarningStyle.Render("[WARN]"), err)
	}

	if err := opts.apply(cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	app := &App{Config: cfg, ConfigPath: configPath(opts.configPath)}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		logging.SetupWriter(io.Discard, "disabled")
		fmt.Fprintf(stderr, "%s logging disabled: %v\n", WarningStyle.Render("[WARN]"), err)
	} else {
		app.logCloser = closer
	}
	app.logger = log.Logger.With().Str("component", "cli").Logger()

	backend, err := kvstore.Open(cfg.Storage)
	if err != nil {
		// Storage faults never stop the app: it runs without persistence.
		app.logger.Error().Err(err).Str("backend", cfg.Storage.Backend).Msg("STORAGE_UNAVAILABLE")
		fmt.Fprintf(stderr, "%s storage unavailable, nothing will be saved: %v\n", WarningStyle.Render("[WARN]"), err)
		backend = nil
	}
	app.KV = kvstore.New(backend)
	// kvstore logs each fault; the app only counts them for status.
	app.KV.OnFault(func(kvstore.Fault) { app.faults.Add(1) })

	app.Session = session.NewManager(app.KV, session.WithDefaultTheme(session.Theme(cfg.UI.Theme)))
	app.Session.Init()

	app.Gateway = gateway.New(cfg.API.BaseURL, gateway.WithTimeout(cfg.API.Timeout()))
	app.Store = storage.NewStore(app.KV,
		storage.WithAgent(app.Gateway),
		storage.WithUserID(app.Session.UserID),
	)
	app.Store.Rehydrate()

	app.Weather = weather.NewClient(cfg.Weather.BaseURL, nil)

	app.logger.Debug().
		Str("api", cfg.API.BaseURL).
		Str("storage", cfg.Storage.Backend).
		Msg("APP_READY")
	return app, nil
}

// NewTracker returns a weather tracker configured from the app settings.
func (a *App) NewTracker() *weather.Tracker {
	return weather.NewTracker(a.Weather, time.Duration(a.Config.Weather.MinIntervalSecs)*time.Second)
}

// Coordinates returns the granted location, or the configured fallback
// coordinates with ok=false when location access was not granted.
func (a *App) Coordinates() (lat, lon float64, ok bool) {
	loc := a.Session.Location()
	if loc.Granted() {
		return loc.Latitude, loc.Longitude, true
	}
	return a.Config.Weather.Latitude, a.Config.Weather.Longitude, false
}

// StorageFaults returns the number of contained storage faults so far.
func (a *App) StorageFaults() int64 {
	return a.faults.Load()
}

// Close waits for background history logging and releases storage and logs.
func (a *App) Close() {
	a.Store.Wait()
	if err := a.KV.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("STORAGE_CLOSE_FAILED")
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// configPath returns the file to watch for hot reload.
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p, err := config.PathTOML(); err == nil {
		return p
	}
	return ""
}
