// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"strings"
	"time"
)

// Fixed retrieval parameters sent with every question.
const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.35
	DefaultTemperature         = 0.1
)

// QueryRequest is the body of POST /agent/query.
type QueryRequest struct {
	Question            string  `json:"question"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Temperature         float64 `json:"temperature"`
}

// AgentResponse is the decoded answer of POST /agent/query.
type AgentResponse struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
	Context   string   `json:"context"`
}

// HistoryEntry is one exchange recorded by the backend.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

// historyTimeLayouts covers the formats the backend emits for created_at.
var historyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Created parses CreatedAt. Values without a zone are taken as UTC.
func (h HistoryEntry) Created() (time.Time, bool) {
	s := strings.TrimSpace(h.CreatedAt)
	for _, layout := range historyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the successful answer of the auth endpoints.
type AuthResult struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}
