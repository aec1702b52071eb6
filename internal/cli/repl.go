// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/agrichat/internal/clipboard"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/export"
	"github.com/jeranaias/agrichat/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the line editor behind the chat REPL.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// linerReader provides readline style editing with persistent history.
type linerReader struct {
	*liner.State
	historyFile string
}

func newLinerReader() lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{State: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.WriteHistory(f)
			f.Close()
		}
	}
	return r.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

func (c *command) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat on the command line",
		Long: "Line oriented chat with input history. Type a question, or a " +
			"slash command such as /new, /list or /help.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := c.lines()
			defer lines.Close()
			return c.repl(cmd.Context(), lines, cmd.OutOrStdout())
		},
	}
}

// errQuit ends the REPL.
var errQuit = errors.New("quit")

func (c *command) repl(ctx context.Context, lines lineReader, out io.Writer) error {
	c.printWelcome(out)
	for {
		input, err := lines.Prompt("agrichat> ")
		if err != nil {
			// Ctrl+C, Ctrl+D and EOF all end the session.
			fmt.Fprintln(out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		lines.AppendHistory(input)

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}
		if strings.HasPrefix(input, "/") {
			if err := c.slash(ctx, input, out); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			continue
		}

		reply, err := c.app.Store.Send(ctx, input)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%s %s\n\n", BotStyle.Render("Assistant:"), reply.Text)
	}
}

func (c *command) printWelcome(out io.Writer) {
	fmt.Fprintln(out, TitleStyle.Render("agrichat"))
	if id, ok := c.app.Session.Identity(); ok {
		fmt.Fprintf(out, "Signed in as %s.\n", id.DisplayName())
	}
	if summary, ok := c.app.Store.Summary(c.app.Store.ActiveID()); ok {
		fmt.Fprintf(out, "Continuing %q. Type /new for a fresh conversation.\n", summary.Text)
	}
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(out)
}

func (c *command) slash(ctx context.Context, input string, out io.Writer) error {
	fields := strings.Fields(input)
	name, rest := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
	store := c.app.Store

	switch name {
	case "/quit", "/exit", "/q":
		return errQuit

	case "/help", "/?":
		printREPLHelp(out)

	case "/new":
		store.NewChat()
		fmt.Fprintln(out, "Started a new conversation.")

	case "/list", "/history":
		fmt.Fprint(out, storage.FormatHistoryList(store.Summaries(), store.ActiveID()))

	case "/search":
		fmt.Fprint(out, storage.FormatHistoryList(store.Search(rest), store.ActiveID()))

	case "/load", "/use":
		summary, err := resolveRef(store, rest)
		if err != nil {
			return err
		}
		if err := store.LoadChat(summary.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %q.\n", summary.Text)
		for _, m := range store.ActiveMessages() {
			printMessage(out, m)
		}

	case "/rename":
		if !store.Rename(store.ActiveID(), rest) {
			return errors.New("usage: /rename <title> (needs an active conversation)")
		}
		fmt.Fprintln(out, "Conversation renamed.")

	case "/delete":
		summary, err := resolveRef(store, rest)
		if err != nil {
			return err
		}
		if err := store.Delete(summary.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %q.\n", summary.Text)

	case "/clear":
		if rest != "confirm" {
			return errors.New("this deletes every conversation, type /clear confirm")
		}
		store.ClearAll()
		fmt.Fprintln(out, "All conversations cleared.")

	case "/share":
		if _, err := store.Share(store.ActiveID(), clipboard.Default()); err != nil {
			return errors.Wrap(err, "could not copy the chat")
		}
		fmt.Fprintln(out, "Chat copied to clipboard.")

	case "/export":
		format := rest
		if format == "" {
			format = "markdown"
		}
		exporter, err := export.ForFormat(format, nil)
		if err != nil {
			return err
		}
		conv, err := export.FromStore(store, store.ActiveID())
		if err != nil {
			return err
		}
		path, err := export.ExportToFile(conv, exporter, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", path)

	case "/weather":
		lat, lon, _ := c.app.Coordinates()
		cur, err := c.app.Weather.Current(ctx, lat, lon)
		if err != nil {
			return errors.Wrap(err, "weather unavailable")
		}
		fmt.Fprintln(out, cur.String())

	default:
		return errors.Errorf("unknown command %s, type /help", name)
	}
	return nil
}

func printREPLHelp(out io.Writer) {
	rows := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/search <text>", "find conversations"},
		{"/load <ref>", "switch conversation (number or id)"},
		{"/rename <title>", "rename the active conversation"},
		{"/delete [ref]", "delete a conversation"},
		{"/clear confirm", "delete every conversation"},
		{"/share", "copy the transcript to the clipboard"},
		{"/export [format]", "markdown, json, yaml or html"},
		{"/weather", "current weather"},
		{"/quit", "leave"},
	}
	for _, r := range rows {
		fmt.Fprintln(out, RenderLabel(r[0])+DimStyle.Render(r[1]))
	}
}
