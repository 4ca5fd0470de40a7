// Package client contains client-side building blocks for GophChat.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for the chat
//     backend: SendMessage, SendMessageWithImage, GetRecommendations and
//     HealthCheck.
//  2. A REST implementation (see HTTPClient) that posts JSON or multipart
//     requests to the backend's /api endpoints and maps failures to typed
//     errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations) for
//     the CLI, wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// A request that never got a response is a *TransportError and matches
// ErrUnavailable with errors.Is. A non-2xx answer is an *HTTPError carrying
// the status and the body's message/error fields; 429 matches ErrRateLimited.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation and timeouts.
package client
