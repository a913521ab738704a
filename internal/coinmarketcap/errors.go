package coinmarketcap

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned for 401/403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrDecode wraps malformed or unexpected response bodies.
	ErrDecode = errors.New("decoding response")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Unwrap exposes ErrUnauthorized or ErrRateLimited when they apply.
func (e *StatusError) Unwrap() error { return e.kind }
