// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/agrichat/internal/clipboard"
	"github.com/jeranaias/agrichat/internal/export"
	"github.com/jeranaias/agrichat/internal/gateway"
	"github.com/jeranaias/agrichat/internal/session"
	"github.com/jeranaias/agrichat/internal/storage"
)

func (c *command) newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Manage saved conversations",
		Long: "Manage saved conversations. A conversation is referenced by its " +
			"number in 'history list', its id, or a unique id prefix. Commands " +
			"that take an optional reference default to the active conversation.",
	}
	cmd.AddCommand(
		c.newHistoryListCommand(),
		c.newHistorySearchCommand(),
		c.newHistoryShowCommand(),
		c.newHistoryUseCommand(),
		c.newHistoryRenameCommand(),
		c.newHistoryDeleteCommand(),
		c.newHistoryClearCommand(),
		c.newHistoryShareCommand(),
		c.newHistoryExportCommand(),
		c.newHistoryRemoteCommand(),
	)
	return cmd
}

// resolveRef finds a conversation by list number, id or unique id prefix.
// An empty ref is the active conversation.
func resolveRef(s *storage.Store, ref string) (storage.ConversationSummary, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if summary, ok := s.Summary(s.ActiveID()); ok {
			return summary, nil
		}
		return storage.ConversationSummary{}, &NotFoundError{Resource: "conversation", ID: "(no active conversation)"}
	}

	summaries := s.Summaries()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(summaries) {
		return summaries[n-1], nil
	}

	var matches []storage.ConversationSummary
	for _, summary := range summaries {
		if string(summary.ID) == ref {
			return summary, nil
		}
		if strings.HasPrefix(string(summary.ID), ref) {
			matches = append(matches, summary)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return storage.ConversationSummary{}, &NotFoundError{Resource: "conversation", ID: ref}
	default:
		return storage.ConversationSummary{}, &UsageError{Message: fmt.Sprintf("%q matches %d conversations", ref, len(matches))}
	}
}

func optionalRef(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// =============================================================================
// LIST / SEARCH / SHOW / USE
// =============================================================================

func (c *command) newHistoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries := c.app.Store.Summaries()
			return c.emit(cmd, summaries, func(w io.Writer) {
				fmt.Fprint(w, storage.FormatHistoryList(summaries, c.app.Store.ActiveID()))
			})
		},
	}
}

func (c *command) newHistorySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find conversations by title or message text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := c.app.Store.Search(strings.Join(args, " "))
			return c.emit(cmd, results, func(w io.Writer) {
				fmt.Fprint(w, storage.FormatHistoryList(results, c.app.Store.ActiveID()))
			})
		},
	}
}

func (c *command) newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [ref]",
		Short: "Print a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := resolveRef(c.app.Store, optionalRef(args))
			if err != nil {
				return err
			}
			msgs := c.app.Store.Messages(summary.ID)
			return c.emit(cmd, export.New(summary, msgs), func(w io.Writer) {
				fmt.Fprintln(w, TitleStyle.Render(summary.Text))
				if len(msgs) == 0 {
					fmt.Fprintln(w, DimStyle.Render(storage.EmptyTranscript))
					return
				}
				for _, m := range msgs {
					printMessage(w, m)
				}
			})
		},
	}
}

func printMessage(w io.Writer, m storage.Message) {
	label := YouStyle.Render("You")
	if m.Sender == storage.SenderBot {
		label = BotStyle.Render("Assistant")
	}
	fmt.Fprintf(w, "%s %s\n%s\n\n", label, DimStyle.Render(m.Timestamp.Local().Format("2006-01-02 15:04")), m.Text)
}

func (c *command) newHistoryUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "use <ref>",
		Aliases: []string{"load"},
		Short:   "Make a conversation active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := resolveRef(c.app.Store, args[0])
			if err != nil {
				return err
			}
			if err := c.app.Store.LoadChat(summary.ID); err != nil {
				return err
			}
			return c.emit(cmd, summary, func(w io.Writer) {
				fmt.Fprintf(w, "Active conversation: %s\n", summary.Text)
			})
		},
	}
}

// =============================================================================
// RENAME / DELETE / CLEAR
// =============================================================================

func (c *command) newHistoryRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <ref> <title>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := resolveRef(c.app.Store, args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if !c.app.Store.Rename(summary.ID, title) {
				return &UsageError{Message: "title must not be empty"}
			}
			renamed, _ := c.app.Store.Summary(summary.ID)
			return c.emit(cmd, renamed, func(w io.Writer) {
				fmt.Fprintf(w, "%s Renamed to %q\n", SuccessStyle.Render("[OK]"), renamed.Text)
			})
		},
	}
}

func (c *command) newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <ref>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation and its messages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := resolveRef(c.app.Store, args[0])
			if err != nil {
				return err
			}
			if err := c.app.Store.Delete(summary.ID); err != nil {
				return err
			}
			return c.emit(cmd, summary, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted %q\n", SuccessStyle.Render("[OK]"), summary.Text)
			})
		},
	}
}

func (c *command) newHistoryClearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return &UsageError{Message: "refusing to delete all conversations without --yes"}
			}
			n := len(c.app.Store.Summaries())
			c.app.Store.ClearAll()
			return c.emit(cmd, map[string]int{"deleted": n}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted %d conversations\n", SuccessStyle.Render("[OK]"), n)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

// =============================================================================
// SHARE / EXPORT
// =============================================================================

func (c *command) newHistoryShareCommand() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "share [ref]",
		Short: "Copy a conversation transcript to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := resolveRef(c.app.Store, optionalRef(args))
			if err != nil {
				return err
			}
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), c.app.Store.Transcript(summary.ID))
				return nil
			}
			transcript, err := c.app.Store.Share(summary.ID, clipboard.Default())
			if err != nil {
				// Still give the user the text to copy by hand.
				fmt.Fprintf(cmd.ErrOrStderr(), "%s could not copy to the clipboard: %v\n", WarningStyle.Render("[WARN]"), err)
				fmt.Fprintln(cmd.OutOrStdout(), transcript)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("[OK]")+" Chat copied to clipboard")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the transcript instead of copying it")
	return cmd
}

func (c *command) newHistoryExportCommand() *cobra.Command {
	opts := export.DefaultOptions()
	var format string
	var all bool
	cmd := &cobra.Command{
		Use:   "export [ref]",
		Short: "Export conversations to markdown, json, yaml or html files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Theme = "dark"
			if c.app.Session.Theme() == session.ThemeLight {
				opts.Theme = "light"
			}
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return &UsageError{Message: err.Error()}
			}

			var targets []storage.ConversationSummary
			if all {
				targets = c.app.Store.Summaries()
			} else {
				summary, err := resolveRef(c.app.Store, optionalRef(args))
				if err != nil {
					return err
				}
				targets = append(targets, summary)
			}

			var paths []string
			for _, summary := range targets {
				conv, err := export.FromStore(c.app.Store, summary.ID)
				if err != nil {
					return err
				}
				if len(conv.Messages) == 0 {
					continue
				}
				path, err := export.ExportToFile(conv, exporter, opts)
				if err != nil {
					return NewCommandError("history", "export", summary.Text, err)
				}
				paths = append(paths, path)
			}
			return c.emit(cmd, paths, func(w io.Writer) {
				if len(paths) == 0 {
					fmt.Fprintln(w, "Nothing to export.")
				}
				for _, p := range paths {
					fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("[OK]"), p)
				}
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "markdown", "one of: "+strings.Join(export.Formats, ", "))
	flags.StringVarP(&opts.OutputDir, "output", "o", opts.OutputDir, "output directory")
	flags.BoolVar(&opts.OpenAfterExport, "open", false, "open the file after exporting")
	flags.BoolVar(&opts.IncludeMetadata, "metadata", opts.IncludeMetadata, "include the metadata header")
	flags.BoolVar(&opts.IncludeTimestamps, "timestamps", opts.IncludeTimestamps, "include message timestamps")
	flags.BoolVar(&all, "all", false, "export every conversation")
	return cmd
}

// =============================================================================
// REMOTE
// =============================================================================

func (c *command) newHistoryRemoteCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Show the exchanges logged to the backend for this user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSignIn(); err != nil {
				return err
			}
			entries := c.app.Gateway.FetchHistory(cmd.Context(), c.app.Session.UserID())
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			return c.emit(cmd, entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No remote history.")
					return
				}
				for _, e := range entries {
					printRemoteEntry(w, e)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n exchanges")
	return cmd
}

func printRemoteEntry(w io.Writer, e gateway.HistoryEntry) {
	when := e.CreatedAt
	if t, ok := e.Created(); ok {
		when = t.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintln(w, DimStyle.Render(when))
	fmt.Fprintf(w, "%s %s\n%s %s\n\n",
		YouStyle.Render("Q:"), e.Question,
		BotStyle.Render("A:"), e.Answer)
}
