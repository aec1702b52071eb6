// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// command carries the shared state of one invocation into subcommands.
type command struct {
	opts globalOptions
	app  *App

	// open and lines are replaced in tests.
	open  func(*globalOptions, io.Writer) (*App, error)
	lines func() lineReader
}

// newRoot builds the command tree around c.
func newRoot(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:   "agrichat",
		Short: "Agriculture assistant for the terminal",
		Long: "agrichat answers farming questions, keeps your conversations and " +
			"shows the local weather.\n\nRun without a command to start the terminal UI.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(&c.opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", "", "config file (default ~/.agrichat/config.toml)")
	flags.StringVar(&c.opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	flags.StringVar(&c.opts.apiURL, "api-url", "", "backend base URL")
	flags.StringVar(&c.opts.storage, "storage", "", "storage backend: file, sqlite, redis, memory")
	flags.BoolVar(&c.opts.jsonOutput, "json", false, "JSON output where supported")

	root.AddCommand(
		c.newAskCommand(),
		c.newChatCommand(),
		c.newLoginCommand(),
		c.newRegisterCommand(),
		c.newLogoutCommand(),
		c.newWhoamiCommand(),
		c.newHistoryCommand(),
		c.newWeatherCommand(),
		c.newStatusCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	c := &command{open: openApp, lines: newLinerReader}
	root := newRoot(c)
	cmd, err := root.ExecuteC()
	c.close()
	if err != nil {
		name := root.Name()
		if cmd != nil {
			name = cmd.Name()
		}
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		DisplayError(root.ErrOrStderr(), name, err, jsonMode)
		return ExitCode(err)
	}
	return ExitSuccess
}

// close releases the app opened for this invocation.
func (c *command) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// requireSignIn fails commands that act on behalf of a user.
func (c *command) requireSignIn() error {
	if !c.app.Session.SignedIn() {
		return &UsageError{Message: "not signed in, run 'agrichat login' first"}
	}
	return nil
}

// emit writes data as JSON in --json mode, otherwise calls human.
func (c *command) emit(cmd *cobra.Command, data any, human func(w io.Writer)) error {
	if c.opts.jsonOutput {
		return NewJSONResponse(cmd.CommandPath(), data).Write(cmd.OutOrStdout())
	}
	human(cmd.OutOrStdout())
	return nil
}
