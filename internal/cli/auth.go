// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/agrichat/internal/session"
)

// =============================================================================
// LOGIN / REGISTER
// =============================================================================

type credentials struct {
	username      string
	email         string
	passwordStdin bool
}

// collect fills missing credentials interactively. With --password-stdin the
// password is the first line of stdin and nothing is prompted.
func (cr *credentials) collect(cmd *cobra.Command, signup bool) (string, error) {
	p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	if cr.passwordStdin {
		if signup && cr.username == "" {
			return "", &UsageError{Message: "--password-stdin needs --username"}
		}
		if cr.email == "" {
			return "", &UsageError{Message: "--password-stdin needs --email"}
		}
		pw, err := p.Line("")
		if err != nil {
			return "", err
		}
		return pw, validateCredentials(cr.username, cr.email, pw, signup)
	}

	var err error
	if signup && cr.username == "" {
		if cr.username, err = p.Line("Username: "); err != nil {
			return "", err
		}
	}
	if cr.email == "" {
		if cr.email, err = p.Line("Email: "); err != nil {
			return "", err
		}
	}
	pw, err := p.Password("Password: ")
	if err != nil {
		return "", err
	}
	return pw, validateCredentials(cr.username, cr.email, pw, signup)
}

func validateCredentials(username, email, password string, signup bool) error {
	switch {
	case signup && strings.TrimSpace(username) == "":
		return &UsageError{Message: "username must not be empty"}
	case !strings.Contains(email, "@"):
		return &UsageError{Message: "a valid email address is required"}
	case password == "":
		return &UsageError{Message: "password must not be empty"}
	}
	return nil
}

func (cr *credentials) bind(cmd *cobra.Command, signup bool) {
	if signup {
		cmd.Flags().StringVar(&cr.username, "username", "", "account username")
	}
	cmd.Flags().StringVar(&cr.email, "email", "", "account email")
	cmd.Flags().BoolVar(&cr.passwordStdin, "password-stdin", false, "read the password from stdin")
}

func (c *command) newLoginCommand() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the agriculture assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := cr.collect(cmd, false)
			if err != nil {
				return err
			}
			res, err := c.app.Gateway.Login(cmd.Context(), cr.email, password)
			if err != nil {
				return err
			}
			return c.signIn(cmd, session.Identity{UserID: res.UserID, Email: cr.email})
		},
	}
	cr.bind(cmd, false)
	return cmd
}

func (c *command) newRegisterCommand() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:     "register",
		Aliases: []string{"signup"},
		Short:   "Create an account and sign in",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := cr.collect(cmd, true)
			if err != nil {
				return err
			}
			res, err := c.app.Gateway.Register(cmd.Context(), cr.username, cr.email, password)
			if err != nil {
				return err
			}
			return c.signIn(cmd, session.Identity{UserID: res.UserID, Email: cr.email, Username: cr.username})
		},
	}
	cr.bind(cmd, true)
	return cmd
}

func (c *command) signIn(cmd *cobra.Command, id session.Identity) error {
	if err := c.app.Session.SignIn(id); err != nil {
		return NewCommandError(cmd.Name(), "sign in", "the server returned an invalid account", err)
	}
	c.app.logger.Info().Str("user_id", id.Key()).Msg("SIGNED_IN")
	return c.emit(cmd, id, func(w io.Writer) {
		fmt.Fprintf(w, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), id.DisplayName())
	})
}

// =============================================================================
// LOGOUT / WHOAMI
// =============================================================================

func (c *command) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out. Conversations stay on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			was := c.app.Session.SignedIn()
			c.app.Session.SignOut()
			return c.emit(cmd, map[string]bool{"signed_out": was}, func(w io.Writer) {
				if was {
					fmt.Fprintln(w, SuccessStyle.Render("[OK]")+" Signed out")
				} else {
					fmt.Fprintln(w, "Not signed in")
				}
			})
		},
	}
}

type whoami struct {
	SignedIn bool              `json:"signed_in"`
	Identity *session.Identity `json:"identity,omitempty"`
	Theme    session.Theme     `json:"theme"`
	Location session.Location  `json:"location"`
	Settings session.Settings  `json:"settings"`
	Backend  string            `json:"backend"`
}

func (c *command) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user and local settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := c.app.Session
			info := whoami{
				Theme:    sess.Theme(),
				Location: sess.Location(),
				Settings: sess.Settings(),
				Backend:  c.app.Gateway.BaseURL(),
			}
			if id, ok := sess.Identity(); ok {
				info.SignedIn = true
				info.Identity = &id
			}
			return c.emit(cmd, info, func(w io.Writer) {
				if info.Identity == nil {
					fmt.Fprintln(w, "Not signed in")
				} else {
					fmt.Fprintln(w, RenderLabel("User")+ValueStyle.Render(info.Identity.DisplayName()))
					fmt.Fprintln(w, RenderLabel("Email")+ValueStyle.Render(info.Identity.Email))
					fmt.Fprintln(w, RenderLabel("User ID")+ValueStyle.Render(info.Identity.Key()))
				}
				fmt.Fprintln(w, RenderLabel("Theme")+ValueStyle.Render(string(info.Theme)))
				fmt.Fprintln(w, RenderLabel("Location")+ValueStyle.Render(string(info.Location.Permission)))
				fmt.Fprintln(w, RenderLabel("Backend")+ValueStyle.Render(info.Backend))
			})
		},
	}
}
