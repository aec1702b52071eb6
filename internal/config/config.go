// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/jeranaias/agrichat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete agrichat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API is the agriculture assistant backend.
	API APIConfig `toml:"api" json:"api"`

	// Storage selects where conversations and identity are persisted.
	Storage StorageConfig `toml:"storage" json:"storage"`

	Weather WeatherConfig `toml:"weather" json:"weather"`
	Voice   VoiceConfig   `toml:"voice" json:"voice"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL is the root of /auth, /agent and /chat endpoints.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds every backend request. 0 means no timeout, which
	// leaves a hung request pending indefinitely.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// StorageConfig contains key/value backend settings.
type StorageConfig struct {
	// Backend is one of: file, sqlite, redis, memory.
	Backend string `toml:"backend" json:"backend"`
	// Path is the directory (file) or database file (sqlite).
	// Empty means ~/.agrichat/store or ~/.agrichat/store.db.
	Path string `toml:"path" json:"path"`
	// RedisAddr is host:port of the redis server (redis backend only).
	RedisAddr string `toml:"redis_addr" json:"redis_addr"`
	// RedisPrefix namespaces every key (redis backend only).
	RedisPrefix string `toml:"redis_prefix" json:"redis_prefix"`
	// RedisDB selects the logical redis database.
	RedisDB int `toml:"redis_db" json:"redis_db"`
}

// WeatherConfig contains the weather widget settings.
type WeatherConfig struct {
	// BaseURL of the open-meteo compatible API.
	BaseURL string `toml:"base_url" json:"base_url"`
	// Latitude and Longitude are used when the location gate is granted and
	// no coordinates were given on the command line.
	Latitude  float64 `toml:"latitude" json:"latitude"`
	Longitude float64 `toml:"longitude" json:"longitude"`
	// MinIntervalSecs is the minimum spacing between weather requests.
	MinIntervalSecs int `toml:"min_interval_secs" json:"min_interval_secs"`
}

// VoiceConfig contains dictation settings.
type VoiceConfig struct {
	// Command is an external speech-to-text program that records a single
	// utterance and prints the transcript on stdout. Empty disables dictation.
	Command string `toml:"command" json:"command"`
	// Lang is the recognition locale.
	Lang string `toml:"lang" json:"lang"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is dark, light or auto.
	Theme string `toml:"theme" json:"theme"`
	// SidebarWidth is the width of the conversation list in columns.
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
	// RenderMarkdown renders assistant answers with glamour.
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// LogConfig contains diagnostic log settings.
type LogConfig struct {
	// Level is one of: trace, debug, info, warn, error, disabled.
	Level string `toml:"level" json:"level"`
	// File receives log output. Empty means ~/.agrichat/agrichat.log.
	File string `toml:"file" json:"file"`
	// MaxSizeMB triggers rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `toml:"max_backups" json:"max_backups"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:     "http://127.0.0.1:8000",
			TimeoutSecs: 0,
		},

		Storage: StorageConfig{
			Backend:     "file",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "agrichat:",
		},

		Weather: WeatherConfig{
			BaseURL:         "https://api.open-meteo.com",
			Latitude:        17.3850,
			Longitude:       78.4867,
			MinIntervalSecs: 2,
		},

		Voice: VoiceConfig{
			Lang: "en-US",
		},

		UI: UIConfig{
			Theme:          "dark",
			SidebarWidth:   28,
			RenderMarkdown: true,
		},

		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the agrichat data directory (~/.agrichat).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".agrichat"), nil
}

// PathTOML returns the path to the default TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the default JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the data directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration. An explicit path wins; otherwise the default TOML
// then JSON files are tried, and built-in defaults are used when neither
// exists. Environment overrides are applied last.
//
// When a default file exists but cannot be parsed, the defaults are returned
// together with the parse error so callers can warn and continue.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromPath(path)
	}

	cfg := Default()
	var loadErr error

	if tomlPath, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err == nil {
				return finish(cfg)
			} else {
				loadErr = errors.Wrap(err, "failed to load TOML config")
				cfg = Default()
			}
		}
	}

	if jsonPath, err := PathJSON(); err == nil && loadErr == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err == nil {
				return finish(cfg)
			} else {
				loadErr = errors.Wrap(err, "failed to load JSON config")
				cfg = Default()
			}
		}
	}

	out, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	return out, loadErr
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load JSON config from %s", path)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load TOML config from %s", path)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read JSON file")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to decode JSON file")
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# agrichat configuration file\n")
	sb.WriteString("# Generated by agrichat - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateHTTPURL(c.API.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: err.Error()})
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must be non-negative"})
	}

	validBackends := map[string]bool{"file": true, "sqlite": true, "redis": true, "memory": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, redis, memory", c.Storage.Backend),
		})
	}
	if strings.EqualFold(c.Storage.Backend, "redis") && c.Storage.RedisAddr == "" {
		errs = append(errs, ValidationError{Field: "storage.redis_addr", Message: "required for the redis backend"})
	}

	if err := validateHTTPURL(c.Weather.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "weather.base_url", Message: err.Error()})
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		errs = append(errs, ValidationError{Field: "weather.latitude", Message: "must be between -90 and 90"})
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		errs = append(errs, ValidationError{Field: "weather.longitude", Message: "must be between -180 and 180"})
	}
	if c.Weather.MinIntervalSecs < 0 {
		errs = append(errs, ValidationError{Field: "weather.min_interval_secs", Message: "must be non-negative"})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be 12-80, got %d", c.UI.SidebarWidth),
		})
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// SetDefaults fills zero-value fields with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = defaults.Storage.RedisPrefix
	}

	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = defaults.Weather.BaseURL
	}
	c.Weather.BaseURL = strings.TrimSuffix(c.Weather.BaseURL, "/")

	if c.Voice.Lang == "" {
		c.Voice.Lang = defaults.Voice.Lang
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = defaults.UI.SidebarWidth
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = defaults.Log.MaxBackups
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AGRICHAT_API_URL: overrides api.base_url
//   - AGRICHAT_API_TIMEOUT: overrides api.timeout_secs
//   - AGRICHAT_STORAGE: overrides storage.backend
//   - AGRICHAT_STORAGE_PATH: overrides storage.path
//   - AGRICHAT_REDIS_ADDR: overrides storage.redis_addr
//   - AGRICHAT_WEATHER_URL: overrides weather.base_url
//   - AGRICHAT_VOICE_COMMAND: overrides voice.command
//   - AGRICHAT_THEME: overrides ui.theme
//   - AGRICHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("AGRICHAT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("AGRICHAT_API_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("AGRICHAT_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("AGRICHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("AGRICHAT_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("AGRICHAT_WEATHER_URL"); v != "" {
		c.Weather.BaseURL = v
	}
	if v := os.Getenv("AGRICHAT_VOICE_COMMAND"); v != "" {
		c.Voice.Command = v
	}
	if v := os.Getenv("AGRICHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("AGRICHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
