// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clipboard exposes the host clipboard as a capability that may be
// absent, for example on a headless server without xclip or wl-copy.
package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned when the host has no clipboard.
var ErrUnsupported = errors.New("clipboard is not available on this system")

// Writer is the part of the clipboard the chat share action needs.
type Writer interface {
	WriteAll(text string) error
}

// System writes to the host clipboard.
type System struct{}

// Supported reports whether a clipboard utility was found at startup.
func (System) Supported() bool {
	return !clipboard.Unsupported
}

// WriteAll copies text to the clipboard.
func (s System) WriteAll(text string) error {
	if !s.Supported() {
		return ErrUnsupported
	}
	if err := clipboard.WriteAll(text); err != nil {
		return errors.Wrap(err, "copy to clipboard")
	}
	return nil
}

// ReadAll returns the clipboard contents.
func (s System) ReadAll() (string, error) {
	if !s.Supported() {
		return "", ErrUnsupported
	}
	text, err := clipboard.ReadAll()
	return text, errors.Wrap(err, "read clipboard")
}

// Memory is an in-process clipboard for tests and headless sessions.
type Memory struct {
	mu   sync.Mutex
	text string
	Err  error
}

// WriteAll stores text, or returns Err when set.
func (m *Memory) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.text = text
	return nil
}

// Text returns the last value written.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Default returns the system clipboard when available, otherwise nil.
func Default() Writer {
	if (System{}).Supported() {
		return System{}
	}
	return nil
}
