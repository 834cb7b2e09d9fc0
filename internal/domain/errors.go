package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// ErrCounterUnderflow is returned by stores when a guarded decrement would take
// a counter below zero. It is a bad request from the caller's point of view.
var ErrCounterUnderflow = fmt.Errorf("counter cannot be less than zero: %w", ErrBadRequest)
