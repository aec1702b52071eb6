// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the HTTP client for the agriculture assistant backend.
//
// # Endpoints
//
//   - POST /agent/query: answer a question (Ask, Answer)
//   - POST /chat/send: record a completed exchange (LogExchange)
//   - GET /chat/history/{user_id}: list recorded exchanges (FetchHistory)
//   - POST /auth/login, POST /auth/register: identity (Login, Register)
//
// Ask, Login and Register return typed errors. LogExchange and
// FetchHistory never fail: they degrade to false and an empty list.
// Requests are never retried.
package gateway
