// Package common defines shared constants and sentinel errors used across
// gophchat components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Wiring errors: a collaborator required by a constructor was not provided.
	ErrMissingDependency = errors.New("missing dependency")

	// Auth errors.
	ErrNotConfigured = errors.New("not configured")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoUser        = errors.New("no signed-in user")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
