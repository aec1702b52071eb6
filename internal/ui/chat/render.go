// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/agrichat/internal/storage"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// refreshViewport re-renders the active conversation into the viewport and
// scrolls to the newest message.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	msgs := m.deps.Store.ActiveMessages()
	if len(msgs) == 0 {
		return m.renderEmpty()
	}

	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}
	textWidth := bubbleWidth - 4

	var sb strings.Builder
	for _, msg := range msgs {
		label, bubble := m.theme.UserLabel.Render("You"), m.theme.UserBubble
		body := lipgloss.NewStyle().Width(textWidth).Render(msg.Text)
		if msg.Sender == storage.SenderBot {
			label, bubble = m.theme.BotLabel.Render("Assistant"), m.theme.BotBubble
			if m.cfg.UI.RenderMarkdown {
				body = m.markdown(msg.Text, textWidth)
			}
		}
		sb.WriteString(label)
		if !msg.Timestamp.IsZero() {
			sb.WriteString("  " + m.theme.Timestamp.Render(msg.Timestamp.Local().Format("Jan 2 15:04")))
		}
		sb.WriteString("\n")
		sb.WriteString(bubble.Render(body))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderEmpty() string {
	var sb strings.Builder
	sb.WriteString(m.theme.EmptyChat.Render(storage.EmptyTranscript + " Ask a question or pick one below."))
	sb.WriteString("\n\n")
	for i, q := range QuickActions {
		line := fmt.Sprintf("alt+%d  %s", i+1, q)
		sb.WriteString("  " + m.theme.QuickAction.Render(line) + "\n")
	}
	return sb.String()
}

// markdown renders bot text with glamour, falling back to the raw text.
func (m *Model) markdown(text string, width int) string {
	style := m.theme.GlamourStyle()
	if m.renderer == nil || m.rendererWidth != width || m.rendererStyle != style {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.logger.Warn().Err(err).Msg("MARKDOWN_RENDERER_FAILED")
			return text
		}
		m.renderer, m.rendererWidth, m.rendererStyle = r, width, style
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
