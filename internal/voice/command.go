// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoSpeech is returned when the recognizer heard nothing.
var ErrNoSpeech = errors.New("no speech detected")

// CommandRecognizer runs an external speech-to-text program that records a
// single utterance and prints the transcript on stdout. The locale is passed
// in the AGRICHAT_VOICE_LANG environment variable.
type CommandRecognizer struct {
	path string
	args []string
}

// NewCommandRecognizer resolves command on PATH. An empty command, or one
// that cannot be found, returns ErrUnsupported.
func NewCommandRecognizer(command string) (*CommandRecognizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrUnsupported
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupported, "%s: %v", fields[0], err)
	}
	return &CommandRecognizer{path: path, args: fields[1:]}, nil
}

// Recognize implements Recognizer.
func (r *CommandRecognizer) Recognize(ctx context.Context, opts Options) (string, error) {
	cmd := exec.CommandContext(ctx, r.path, r.args...)
	cmd.Env = append(os.Environ(), "AGRICHAT_VOICE_LANG="+opts.Lang)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", errors.Wrapf(err, "speech recognizer failed: %s", msg)
		}
		return "", errors.Wrap(err, "speech recognizer failed")
	}

	transcript := strings.Join(strings.Fields(stdout.String()), " ")
	if transcript == "" {
		return "", ErrNoSpeech
	}
	return transcript, nil
}

// FromCommand returns the host recognizer for command, or nil when dictation
// is unavailable. The nil result is a Recognizer interface value, so it can
// be handed straight to NewController.
func FromCommand(command string) Recognizer {
	r, err := NewCommandRecognizer(command)
	if err != nil {
		return nil
	}
	return r
}
