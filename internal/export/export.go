// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/util"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an exportable copy of one conversation.
type Conversation struct {
	ID        storage.ID `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"updatedAt"`
	Messages  []Message  `json:"messages" yaml:"messages"`
}

// Message is one exported turn.
type Message struct {
	Sender    storage.Sender `json:"sender" yaml:"sender"`
	Text      string         `json:"text" yaml:"text"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

// New builds a Conversation from a summary and its messages.
func New(summary storage.ConversationSummary, msgs []storage.Message) *Conversation {
	conv := &Conversation{
		ID:        summary.ID,
		Title:     summary.Text,
		CreatedAt: summary.CreatedAt,
		UpdatedAt: summary.Timestamp,
		Messages:  make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, Message{Sender: m.Sender, Text: m.Text, Timestamp: m.Timestamp})
	}
	return conv
}

// FromStore loads conversation id from the chat store.
func FromStore(s *storage.Store, id storage.ID) (*Conversation, error) {
	summary, ok := s.Summary(id)
	if !ok {
		return nil, errors.Wrapf(storage.ErrConversationNotFound, "export %s", id)
	}
	return New(summary, s.Messages(id)), nil
}

func validate(conv *Conversation) error {
	if conv == nil {
		return errors.New("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return errors.New("conversation has no messages")
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Formats lists the accepted format names.
var Formats = []string{"markdown", "json", "yaml", "html"}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "yaml", "yml":
		return NewYAMLExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, errors.Errorf("unsupported export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the metadata header.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(conv *Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", errors.Wrap(err, "export failed")
	}

	filename := "conversation_" + sanitizeFilename(conv.Title) + "_" +
		opts.now().Format("20060102_150405") + exporter.FileExtension()

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output directory")
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0o644); err != nil {
		return "", errors.Wrap(err, "write file")
	}

	log.Info().Str("path", outputPath).Str("mime", exporter.MimeType()).Int("messages", len(conv.Messages)).Msg("EXPORTED")

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// The file was written; failing to open it is not an export failure.
			log.Warn().Err(err).Str("path", outputPath).Msg("EXPORT_OPEN_FAILED")
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
	" ", "_", "\t", "_", "\n", "_", "\r", "_",
)

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)
	s = strings.TrimSuffix(s, "...")
	s = filenameReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '-'
		}
		return r
	}, s)
	if s == "" {
		return "conversation"
	}
	return s
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return errors.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

func senderLabel(s storage.Sender) string {
	if s == storage.SenderBot {
		return "Assistant"
	}
	return "You"
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
