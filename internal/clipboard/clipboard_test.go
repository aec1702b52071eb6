// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package clipboard

import (
	"testing"

	"github.com/pkg/errors"
)

func TestMemory(t *testing.T) {
	var m Memory
	if err := m.WriteAll("You: hi"); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if got := m.Text(); got != "You: hi" {
		t.Errorf("Text() = %q, want %q", got, "You: hi")
	}

	m.Err = errors.New("denied")
	if err := m.WriteAll("ignored"); err == nil {
		t.Error("WriteAll should fail when Err is set")
	}
	if got := m.Text(); got != "You: hi" {
		t.Errorf("failed write changed the text to %q", got)
	}
}

func TestSystemUnsupported(t *testing.T) {
	s := System{}
	if s.Supported() {
		t.Skip("host clipboard is available")
	}
	if err := s.WriteAll("x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("WriteAll error = %v, want ErrUnsupported", err)
	}
	if _, err := s.ReadAll(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ReadAll error = %v, want ErrUnsupported", err)
	}
	if w := Default(); w != nil {
		t.Errorf("Default() = %T, want nil without a host clipboard", w)
	}
}
