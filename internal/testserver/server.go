// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testserver runs an in-process fake of the agriculture assistant
// backend and the weather API for tests.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Query is a recorded /agent/query request body.
type Query struct {
	Question            string  `json:"question"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Temperature         float64 `json:"temperature"`
}

// Exchange is a recorded /chat/send call.
type Exchange struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

// Weather is the current weather served on /v1/forecast.
type Weather struct {
	Temperature float64 `json:"temperature"`
	Windspeed   float64 `json:"windspeed"`
	WeatherCode int     `json:"weathercode"`
}

type user struct {
	id       int64
	username string
	password string
}

// Server is a fake backend configured through its setters.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]user
	nextUserID int64
	history    []Exchange
	queries    []Query
	weatherReq []string

	answer      func(question string) (string, int)
	failSend    bool
	failHistory bool
	weather     Weather
	weatherWait time.Duration
}

// New starts a fake backend. Call Close when done.
func New() *Server {
	s := &Server{
		users:      make(map[string]user),
		nextUserID: 1,
		answer: func(q string) (string, int) {
			return "Answer to: " + q, http.StatusOK
		},
		weather: Weather{Temperature: 31.5, Windspeed: 12.2, WeatherCode: 2},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
	})
	r.Post("/agent/query", s.query)
	r.Route("/chat", func(r chi.Router) {
		r.Post("/send", s.send)
		r.Get("/history/{userID}", s.historyFor)
	})
	r.Get("/v1/forecast", s.forecast)

	s.Server = httptest.NewServer(r)
	return s
}

// =============================================================================
// KNOBS
// =============================================================================

// SetAnswer replaces the agent. The returned status is sent with the answer;
// non-2xx statuses send the answer text as a plain body.
func (s *Server) SetAnswer(fn func(question string) (answer string, status int)) {
	s.mu.Lock()
	s.answer = fn
	s.mu.Unlock()
}

// FailSend makes /chat/send answer 500.
func (s *Server) FailSend(fail bool) {
	s.mu.Lock()
	s.failSend = fail
	s.mu.Unlock()
}

// FailHistory makes /chat/history answer 500.
func (s *Server) FailHistory(fail bool) {
	s.mu.Lock()
	s.failHistory = fail
	s.mu.Unlock()
}

// SetWeather sets the current weather and an artificial response delay.
func (s *Server) SetWeather(w Weather, delay time.Duration) {
	s.mu.Lock()
	s.weather = w
	s.weatherWait = delay
	s.mu.Unlock()
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(username, email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextUserID
	s.nextUserID++
	s.users[email] = user{id: id, username: username, password: password}
	return id
}

// Queries returns the recorded question requests.
func (s *Server) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

// History returns the recorded exchanges.
func (s *Server) History() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.history...)
}

// WeatherRequests returns the raw query strings of completed forecast requests.
func (s *Server) WeatherRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.weatherReq...)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user_id": u.id})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email is required"})
		return
	}

	s.mu.Lock()
	_, exists := s.users[req.Email]
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	id := s.AddUser(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusOK, map[string]any{"message": "User registered successfully", "user_id": id})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var q Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, q)
	answer := s.answer
	s.mu.Unlock()

	text, status := answer(q.Question)
	if status < 200 || status >= 300 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(text))
		return
	}
	writeJSON(w, status, map[string]any{
		"question":   q.Question,
		"answer":     text,
		"tools_used": []string{"rag"},
		"context":    "",
	})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "user_id must be an integer"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ex := Exchange{
		ID:        int64(len(s.history) + 1),
		UserID:    uid,
		Question:  q.Get("question"),
		Answer:    q.Get("answer"),
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
	s.history = append(s.history, ex)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Chat saved successfully", "chat_id": ex.ID})
}

func (s *Server) historyFor(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "user_id must be an integer"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHistory {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := []Exchange{}
	for _, ex := range s.history {
		if ex.UserID == uid {
			out = append(out, ex)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	wait := s.weatherWait
	current := s.weather
	s.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-r.Context().Done():
			return
		}
	}

	if r.URL.Query().Get("current_weather") != "true" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "reason": "current_weather required"})
		return
	}

	s.mu.Lock()
	s.weatherReq = append(s.weatherReq, r.URL.RawQuery)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"current_weather": current,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
