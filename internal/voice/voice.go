// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice implements dictation for the chat input: a small state
// machine over a host speech recognition capability.
//
//	Idle --Start--> Listening --result--> Idle
//	Listening --engine error--> Error --> Idle
//	Listening --Stop--> Idle
package voice

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnsupported is reported when the host has no speech recognition.
var ErrUnsupported = errors.New("speech recognition is not supported on this system")

// DefaultLang is the recognition locale.
const DefaultLang = "en-US"

// State is the dictation state.
type State int

const (
	Idle State = iota
	Listening
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Options configures one recognition session.
type Options struct {
	Lang           string
	Continuous     bool
	InterimResults bool
}

// Recognizer captures one utterance and returns its final transcript.
// It must return promptly once ctx is cancelled.
type Recognizer interface {
	Recognize(ctx context.Context, opts Options) (string, error)
}

// Event is delivered to the controller's listener on every transition.
type Event struct {
	State      State
	Transcript string // set on the transition out of Listening after a result
	Err        error  // set when State is Error
}

// Controller drives a Recognizer for the chat input.
type Controller struct {
	recognizer Recognizer
	lang       string
	notify     func(Event)
	logger     zerolog.Logger

	mu      sync.Mutex
	state   State
	session uint64
	cancel  context.CancelFunc
	closed  bool
}

// NewController creates a controller. A nil recognizer yields a usable
// controller whose Start is a no-op, together with ErrUnsupported.
func NewController(r Recognizer, lang string, notify func(Event)) (*Controller, error) {
	if lang == "" {
		lang = DefaultLang
	}
	if notify == nil {
		notify = func(Event) {}
	}
	c := &Controller{
		recognizer: r,
		lang:       lang,
		notify:     notify,
		logger:     log.Logger.With().Str("component", "voice").Logger(),
	}
	if r == nil {
		return c, ErrUnsupported
	}
	return c, nil
}

// Supported reports whether dictation is available.
func (c *Controller) Supported() bool {
	return c.recognizer != nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Options returns the per-session recognition settings.
func (c *Controller) Options() Options {
	return Options{Lang: c.lang, Continuous: false, InterimResults: false}
}

// Start begins a recognition session. It is a no-op while listening, after
// Close, or when dictation is unsupported.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.recognizer == nil || c.closed || c.state == Listening {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.session++
	session := c.session
	c.cancel = cancel
	c.state = Listening
	c.mu.Unlock()

	c.logger.Debug().Uint64("session", session).Msg("DICTATION_START")
	c.notify(Event{State: Listening})

	go c.run(ctx, session)
}

func (c *Controller) run(ctx context.Context, session uint64) {
	transcript, err := c.recognizer.Recognize(ctx, c.Options())

	c.mu.Lock()
	if c.closed || session != c.session || c.state != Listening {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil

	if err != nil {
		c.state = Error
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("DICTATION_ERROR")
		c.notify(Event{State: Error, Err: err})

		c.mu.Lock()
		if c.closed || session != c.session || c.state != Error {
			c.mu.Unlock()
			return
		}
		c.state = Idle
		c.mu.Unlock()
		c.notify(Event{State: Idle})
		return
	}

	c.state = Idle
	c.mu.Unlock()
	c.notify(Event{State: Idle, Transcript: transcript})
}

// Stop ends the current session without a result.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != Listening {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	closed := c.closed
	c.mu.Unlock()

	if !closed {
		c.notify(Event{State: Idle})
	}
}

// Close stops any session in flight. Results arriving afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.session++
	c.state = Idle
}
