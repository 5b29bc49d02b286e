// Package services provides application-level orchestration services
package services

import "errors"

// The service error taxonomy. Handlers map these onto HTTP status codes;
// everything unwrapped falls through as an internal error.
var (
	// ErrInvalidRequest marks missing or malformed required fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks an identity reference that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks an unreachable persistence layer.
	ErrUnavailable = errors.New("unavailable")
)
