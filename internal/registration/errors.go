package registration

import (
	"errors"
	"net/http"
)

// Failure classes for the two-phase registration flow. Handlers map these to
// HTTP statuses with StatusFor; anything unclassified is a 500.
var (
	// ErrValidation: malformed or missing caller input.
	ErrValidation = errors.New("registration: invalid input")
	// ErrNotStarted: no pending registration for the configuration endpoint.
	ErrNotStarted = errors.New("registration: not started")
	// ErrDuplicate: a platform record already exists for (platform URL, client_id).
	ErrDuplicate = errors.New("registration: platform already registered")
	// ErrUpstream: the platform's configuration or registration endpoint
	// failed, returned a non-success status, or returned an unparseable body.
	ErrUpstream = errors.New("registration: platform request failed")
	// ErrKeyGeneration: the signing key pair could not be produced.
	ErrKeyGeneration = errors.New("registration: key generation failed")
)

// StatusFor maps a registration error to the HTTP status surfaced to callers.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotStarted):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
