// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agrichat/internal/testserver"
)

func newClient(t *testing.T) (*Client, *testserver.Server) {
	t.Helper()
	srv := testserver.New()
	t.Cleanup(srv.Close)
	return New(srv.URL + "/"), srv
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_SendsFixedParameters(t *testing.T) {
	c, srv := newClient(t)

	resp, err := c.Ask(context.Background(), "When should I plant wheat?")
	require.NoError(t, err)
	assert.Equal(t, "Answer to: When should I plant wheat?", resp.Answer)
	assert.Equal(t, []string{"rag"}, resp.ToolsUsed)

	queries := srv.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, testserver.Query{
		Question:            "When should I plant wheat?",
		TopK:                5,
		SimilarityThreshold: 0.35,
		Temperature:         0.1,
	}, queries[0])
}

func TestAsk_RemoteErrorCarriesBody(t *testing.T) {
	c, srv := newClient(t)
	srv.SetAnswer(func(string) (string, int) {
		return "AgriAgent service is currently unavailable", http.StatusServiceUnavailable
	})

	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusServiceUnavailable, remote.Status)
	assert.Equal(t, "AgriAgent service is currently unavailable", remote.Body)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestAsk_RemoteErrorEmptyBody(t *testing.T) {
	c, srv := newClient(t)
	srv.SetAnswer(func(string) (string, int) { return "", http.StatusInternalServerError })

	_, err := c.Ask(context.Background(), "q")
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "", remote.Body)
	assert.Equal(t, "request failed with status 500 Internal Server Error", err.Error())
}

func TestAsk_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Ask(context.Background(), "q")
	require.Error(t, err)
	var remote *RemoteError
	assert.False(t, errors.As(err, &remote))
}

func TestAsk_MissingAnswerField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"question":"q"}`))
	}))
	defer srv.Close()

	answer, err := New(srv.URL).Answer(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "", answer)
}

func TestAsk_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Ask(context.Background(), "q")
	assert.Error(t, err)
}

func TestAsk_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", MaxResponseSize+10)))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

// =============================================================================
// HISTORY
// =============================================================================

func TestLogExchange_AndFetchHistory(t *testing.T) {
	c, srv := newClient(t)
	uid := srv.AddUser("ravi", "ravi@example.com", "pw")
	id := strconv.FormatInt(uid, 10)

	ok := c.LogExchange(context.Background(), id, "rain & wind?", "Light showers = 5mm")
	require.True(t, ok)

	entries := c.FetchHistory(context.Background(), id)
	require.Len(t, entries, 1)
	assert.Equal(t, uid, entries[0].UserID)
	assert.Equal(t, "rain & wind?", entries[0].Question)
	assert.Equal(t, "Light showers = 5mm", entries[0].Answer)
	_, parsed := entries[0].Created()
	assert.True(t, parsed)
}

func TestLogExchange_FailuresReturnFalse(t *testing.T) {
	c, srv := newClient(t)
	srv.FailSend(true)
	assert.False(t, c.LogExchange(context.Background(), "1", "q", "a"))

	srv.FailSend(false)
	assert.False(t, c.LogExchange(context.Background(), "not-a-number", "q", "a"))

	dead := New("http://127.0.0.1:1")
	assert.False(t, dead.LogExchange(context.Background(), "1", "q", "a"))
}

func TestFetchHistory_FailuresReturnEmpty(t *testing.T) {
	c, srv := newClient(t)
	srv.FailHistory(true)
	entries := c.FetchHistory(context.Background(), "1")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	srv.FailHistory(false)
	assert.Empty(t, c.FetchHistory(context.Background(), "1"))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer bad.Close()
	assert.Empty(t, New(bad.URL).FetchHistory(context.Background(), "1"))

	assert.Empty(t, New("http://127.0.0.1:1").FetchHistory(context.Background(), "1"))
}

func TestHistoryEntry_Created(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-06-01T10:20:30.123456", true},
		{"2024-06-01T10:20:30", true},
		{"2024-06-01T10:20:30Z", true},
		{"2024-06-01 10:20:30", true},
		{"yesterday", false},
	}
	for _, tc := range tests {
		_, ok := HistoryEntry{CreatedAt: tc.in}.Created()
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestRegisterThenLogin(t *testing.T) {
	c, _ := newClient(t)

	reg, err := c.Register(context.Background(), "lakshmi", "lakshmi@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, reg.UserID)

	res, err := c.Login(context.Background(), "lakshmi@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, res.UserID)
}

func TestLogin_RejectedUsesDetail(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Login(context.Background(), "nobody@example.com", "pw")
	require.Error(t, err)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Invalid email or password", authErr.Message)
	assert.Equal(t, http.StatusBadRequest, authErr.Status)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	c, srv := newClient(t)
	srv.AddUser("a", "dup@example.com", "pw")

	_, err := c.Register(context.Background(), "b", "dup@example.com", "pw")
	assert.EqualError(t, err, "Email already registered")
}

func TestRegister_MessageField(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Register(context.Background(), "b", "", "pw")
	assert.EqualError(t, err, "email is required")
}

func TestAuthErrorFrom(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Bad"}`, "Bad"},
		{"detail list", `{"detail":[{"msg":"a"},{"msg":"b"}]}`, "a; b"},
		{"message", `{"message":"Nope"}`, "Nope"},
		{"detail wins", `{"detail":"D","message":"M"}`, "D"},
		{"not json", `<html>`, "Login failed"},
		{"empty", ``, "Login failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := authErrorFrom(400, []byte(tc.body), "Login failed")
			assert.Equal(t, tc.want, err.Message)
		})
	}
}

func TestPing(t *testing.T) {
	c, _ := newClient(t)
	assert.NoError(t, c.Ping(context.Background()))
	assert.Error(t, New("http://127.0.0.1:1").Ping(context.Background()))
}
