// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across agrichat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadWidth: column-aware layout for the sidebar and tables
//   - NormalizeText: trim + NFC normalisation for user-entered titles
//
// File Operations:
//   - AtomicWriteFile: crash-safe file replacement with fsync
//
// # Usage
//
//	title := util.TruncateWidth(summary.Text, 24)
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
