// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxResponseSize is the maximum allowed response body size.
const MaxResponseSize = 10 * 1024 * 1024

// sharedTransport pools connections across clients.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// Client talks to the agriculture assistant backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Transport: sharedTransport},
		logger:     log.Logger.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// QUESTIONS
// =============================================================================

// Ask sends question to the agent with the fixed retrieval parameters.
func (c *Client) Ask(ctx context.Context, question string) (*AgentResponse, error) {
	req := QueryRequest{
		Question:            question,
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Temperature:         DefaultTemperature,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/agent/query", nil, req)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &RemoteError{Status: status, Body: strings.TrimSpace(string(body))}
	}

	var resp AgentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse agent response")
	}
	return &resp, nil
}

// Answer returns only the answer text of Ask.
func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	resp, err := c.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// LogExchange records a completed exchange. It reports false on any failure
// and never returns an error.
func (c *Client) LogExchange(ctx context.Context, userID, question, answer string) bool {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("question", question)
	query.Set("answer", answer)

	status, _, err := c.do(ctx, http.MethodPost, "/chat/send", query, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("LOG_EXCHANGE_FAILED")
		return false
	}
	if !success(status) {
		c.logger.Warn().Int("status", status).Msg("LOG_EXCHANGE_REJECTED")
		return false
	}
	return true
}

// FetchHistory returns the exchanges recorded for userID, or an empty list
// on any failure.
func (c *Client) FetchHistory(ctx context.Context, userID string) []HistoryEntry {
	status, body, err := c.do(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("FETCH_HISTORY_FAILED")
		return []HistoryEntry{}
	}
	if !success(status) {
		c.logger.Warn().Int("status", status).Msg("FETCH_HISTORY_REJECTED")
		return []HistoryEntry{}
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		c.logger.Warn().Err(err).Msg("FETCH_HISTORY_DECODE_FAILED")
		return []HistoryEntry{}
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login exchanges credentials for a user ID.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.auth(ctx, "/auth/login", LoginRequest{Email: email, Password: password}, "Login failed")
}

// Register creates an account and returns its user ID.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	return c.auth(ctx, "/auth/register",
		RegisterRequest{Username: username, Email: email, Password: password}, "Registration failed")
}

func (c *Client) auth(ctx context.Context, path string, payload any, fallback string) (*AuthResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, authErrorFrom(status, body, fallback)
	}

	var res AuthResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, "failed to parse auth response")
	}
	return &res, nil
}

// Ping reports whether the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	return err
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.logger.Debug().Str("method", method).Str("path", path).Msg("API_REQUEST")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API_RESPONSE")

	body, err := readResponse(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, errors.New("response exceeded maximum size of " + strconv.Itoa(MaxResponseSize) + " bytes")
	}
	return body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
