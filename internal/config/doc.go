// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for agrichat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Agriculture assistant backend endpoint
//   - StorageConfig: Key/value backend selection (file, sqlite, redis, memory)
//   - WeatherConfig: Weather widget endpoint and fallback coordinates
//   - Watcher: Hot reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AGRICHAT_*)
//   - The file passed with --config
//   - ~/.agrichat/config.toml
//   - ~/.agrichat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Printf("CONFIG_WARN | err=%v", err)
//	}
//	fmt.Println(cfg.API.BaseURL)
package config
