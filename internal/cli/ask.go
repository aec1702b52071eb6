// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/agrichat/internal/storage"
)

type askResult struct {
	ConversationID storage.ID `json:"conversation_id"`
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
}

func (c *command) newAskCommand() *cobra.Command {
	var newChat bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question",
		Long: "Ask one question. The turn is added to the active conversation, " +
			"or to a new one with --new, exactly as if it was typed in the UI.",
		Example: `  agrichat ask "When should I sow wheat in Punjab?"
  agrichat ask --new "Organic treatment for aphids"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return &UsageError{Message: "question must not be empty"}
			}
			if newChat {
				c.app.Store.NewChat()
			}
			reply, err := c.app.Store.Send(cmd.Context(), question)
			if err != nil {
				return NewCommandError("ask", "send", "could not start the turn", err)
			}
			res := askResult{
				ConversationID: c.app.Store.ActiveID(),
				Question:       question,
				Answer:         reply.Text,
			}
			return c.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintln(w, reply.Text)
			})
		},
	}
	cmd.Flags().BoolVar(&newChat, "new", false, "start a new conversation first")
	return cmd
}
