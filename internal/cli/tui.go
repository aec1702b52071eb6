// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/agrichat/internal/clipboard"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/ui/chat"
	"github.com/jeranaias/agrichat/internal/voice"
)

// configDebounce coalesces the burst of events an editor save produces.
const configDebounce = 300 * time.Millisecond

// runTUI starts the full screen interface and blocks until it exits.
func (c *command) runTUI(cmd *cobra.Command) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "the terminal UI"}
	}
	app := c.app

	model := chat.New(chat.Deps{
		Store:      app.Store,
		Session:    app.Session,
		Auth:       app.Gateway,
		Weather:    app.NewTracker(),
		Recognizer: voice.FromCommand(app.Config.Voice.Command),
		Clipboard:  clipboard.Default(),
		Config:     app.Config,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if app.ConfigPath != "" {
		w, err := config.Watch(app.ConfigPath, configDebounce, func(cfg *config.Config, err error) {
			if err == nil {
				err = c.opts.apply(cfg)
			}
			if err != nil {
				app.logger.Warn().Err(err).Str("path", app.ConfigPath).Msg("CONFIG_RELOAD_REJECTED")
				return
			}
			p.Send(chat.ConfigReloadedMsg{Config: cfg})
		})
		if err != nil {
			app.logger.Debug().Err(err).Msg("CONFIG_WATCH_DISABLED")
		} else {
			defer w.Close()
		}
	}

	app.logger.Info().Msg("TUI_START")
	final, err := p.Run()
	if m, ok := final.(chat.Model); ok {
		m.Shutdown()
	} else {
		model.Shutdown()
	}
	app.logger.Info().Msg("TUI_EXIT")
	return errors.Wrap(err, "run terminal UI")
}
