// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a self-contained HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("    <meta name=\"generator\" content=\"agrichat\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n    <div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	fmt.Fprintf(&sb, "        <footer class=\"footer\"><p>Exported from <strong>agrichat</strong> on %s</p></footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(conv *Conversation) string {
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(conv.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
	}
	if !conv.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Last activity:</strong> %s</span>\n", formatTimestamp(conv.UpdatedAt))
	}
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
	sb.WriteString("            </div>\n        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", html.EscapeString(string(msg.Sender)))
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", senderLabel(msg.Sender))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", msg.Timestamp.Format(time.Kitchen))
	}
	sb.WriteString("                </div>\n")
	fmt.Fprintf(&sb, "                <div class=\"message-content\">\n%s\n                </div>\n", formatContent(msg.Text))
	sb.WriteString("            </div>\n")
	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

var (
	codeBlockRegex   = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex  = regexp.MustCompile("`([^`]+)`")
	boldRegex        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	placeholderRegex = regexp.MustCompile("^\x00[0-9]+\x00$")
)

// formatContent escapes text and converts fenced code, inline code, bold
// and blank-line paragraphs to HTML.
func formatContent(content string) string {
	content = html.EscapeString(strings.TrimSpace(content))

	var blocks []string
	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		lang := parts[1]
		label := ""
		if lang != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang)
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code>%s</code></pre></div>",
			label, strings.TrimRight(parts[2], "\n")))
		return placeholder(len(blocks) - 1)
	})

	content = inlineCodeRegex.ReplaceAllString(content, "<code class=\"inline-code\">$1</code>")
	content = boldRegex.ReplaceAllString(content, "<strong>$1</strong>")

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		switch {
		case para == "":
		case placeholderRegex.MatchString(para):
			out = append(out, para)
		default:
			out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>\n")+"</p>")
		}
	}
	result := strings.Join(out, "\n")
	for i, block := range blocks {
		result = strings.Replace(result, placeholder(i), block, 1)
	}
	return result
}

func placeholder(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

const htmlCSS = `    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
        .dark-theme { background: #1b1f1a; color: #e6ebe3; }
        .light-theme { background: #f7f9f4; color: #1f2a1c; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { border-bottom: 2px solid #4f8a3c; padding-bottom: 1rem; margin-bottom: 2rem; }
        .header h1 { font-size: 1.8rem; margin-bottom: 0.5rem; }
        .metadata { display: flex; gap: 1.5rem; flex-wrap: wrap; font-size: 0.9rem; opacity: 0.8; }
        .message { border-radius: 8px; padding: 1rem 1.25rem; margin-bottom: 1rem; }
        .dark-theme .user-message { background: #263022; }
        .dark-theme .bot-message { background: #22281f; border-left: 3px solid #7cb342; }
        .light-theme .user-message { background: #e8f0e1; }
        .light-theme .bot-message { background: #ffffff; border-left: 3px solid #558b2f; }
        .message-header { display: flex; justify-content: space-between; font-size: 0.85rem; margin-bottom: 0.5rem; }
        .role-label { font-weight: 600; }
        .timestamp { opacity: 0.6; }
        .message-content p { margin-bottom: 0.75rem; }
        .code-block { margin: 0.75rem 0; border-radius: 6px; overflow: hidden; background: #111; color: #ddd; }
        .code-lang { font-size: 0.75rem; padding: 0.25rem 0.75rem; background: #333; }
        .code-block pre { padding: 0.75rem; overflow-x: auto; }
        .inline-code { font-family: monospace; padding: 0.1rem 0.3rem; border-radius: 3px; background: rgba(127,127,127,0.2); }
        .footer { margin-top: 2rem; font-size: 0.8rem; opacity: 0.6; text-align: center; }
    </style>
`
