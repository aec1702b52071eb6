// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes agrichat conversations to files.
//
// # Key Types
//
//   - Conversation: A summary plus its messages, detached from the store
//   - Exporter: Format-specific encoder
//   - Options: Output directory, metadata and timestamp switches
//
// # Supported Formats
//
//   - Markdown: Human-readable with YAML frontmatter
//   - JSON: The conversation as stored
//   - YAML: Same data as JSON, easier to read and diff
//   - HTML: Self-contained page with embedded CSS
//
// # Usage
//
//	conv, err := export.FromStore(store, id)
//	if err != nil {
//	    return err
//	}
//	exporter, err := export.ForFormat("md", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(conv, exporter, nil)
package export
