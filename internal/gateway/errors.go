// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RemoteError is returned when the backend answers with a non-2xx status.
type RemoteError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// AuthError is returned when login or registration is rejected.
type AuthError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// errorBody is the error shape used by the backend.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// authErrorFrom builds an AuthError from a rejected response, preferring the
// server's detail text, then its message, then a generic fallback.
func authErrorFrom(status int, body []byte, fallback string) *AuthError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if msg := detailText(eb.Detail); msg != "" {
			return &AuthError{Status: status, Message: msg}
		}
		if eb.Message != "" {
			return &AuthError{Status: status, Message: eb.Message}
		}
	}
	return &AuthError{Status: status, Message: fallback}
}

// detailText flattens a detail field that is either a string or a list of
// validation errors with "msg" fields.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
