// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeranaias/agrichat/internal/util"
)

// EmptyTranscript is the transcript of a conversation without messages.
const EmptyTranscript = "No messages in this chat yet."

// Clipboard receives shared transcripts.
type Clipboard interface {
	WriteAll(text string) error
}

// =============================================================================
// SHARE
// =============================================================================

// FormatTranscript renders messages as "You: ..." and "Bot: ..." lines.
func FormatTranscript(msgs []Message) string {
	if len(msgs) == 0 {
		return EmptyTranscript
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prefix := "You: "
		if m.Sender == SenderBot {
			prefix = "Bot: "
		}
		lines = append(lines, prefix+m.Text)
	}
	return strings.Join(lines, "\n")
}

// Transcript renders the messages of id.
func (s *Store) Transcript(id ID) string {
	return FormatTranscript(s.Messages(id))
}

// Share copies the transcript of id to clip and returns it.
func (s *Store) Share(id ID, clip Clipboard) (string, error) {
	transcript := s.Transcript(id)
	if clip == nil {
		return transcript, errors.New("clipboard unavailable")
	}
	if err := clip.WriteAll(transcript); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", string(id)).Msg("SHARE_FAILED")
		return transcript, errors.Wrap(err, "copy transcript")
	}
	return transcript, nil
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatHistoryList formats conversations as a table for the command line.
// The active conversation is marked with '*'.
func FormatHistoryList(summaries []ConversationSummary, active ID) string {
	if len(summaries) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("---------------------------------------------------------------\n")
	sb.WriteString("  " + util.PadWidth("#", 4) + util.PadWidth("ID", 10) + util.PadWidth("Last activity", 18) + "Title\n")
	sb.WriteString("---------------------------------------------------------------\n")

	for i, c := range summaries {
		marker := "  "
		if c.ID == active {
			marker = "* "
		}
		title := util.TruncateWidth(util.SingleLine(c.Text), 40)
		sb.WriteString(marker +
			util.PadWidth(strconv.Itoa(i+1), 4) +
			util.PadWidth(c.ID.Short(), 10) +
			util.PadWidth(c.Timestamp.Local().Format("2006-01-02 15:04"), 18) +
			title + "\n")
	}
	return sb.String()
}
