package feed

import (
	"errors"
	"fmt"

	"pricefeed/internal/coinmarketcap"
)

// Kind classifies why live quotes were unavailable. Kind values are errors
// themselves so callers can match with errors.Is(err, feed.KindTransport).
type Kind int

const (
	KindNoCredential Kind = iota + 1
	KindTransport
	KindStatus
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindNoCredential:
		return "no_credential"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindPayload:
		return "payload"
	}
	return "unknown"
}

func (k Kind) Error() string { return k.String() }

// Error is an upstream failure that the feed recovered from.
type Error struct {
	Kind Kind
	// Code is the upstream HTTP status for KindStatus.
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return "quote upstream unavailable: " + e.Kind.String()
	case e.Kind == KindStatus:
		return fmt.Sprintf("quote upstream unavailable: %s %d: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("quote upstream unavailable: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Classify maps an upstream error onto a Kind.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	var se *coinmarketcap.StatusError
	switch {
	case errors.As(err, &se):
		return &Error{Kind: KindStatus, Code: se.Code, Err: err}
	case errors.Is(err, coinmarketcap.ErrDecode):
		return &Error{Kind: KindPayload, Err: err}
	}
	// connection failures, timeouts and cancellation
	return &Error{Kind: KindTransport, Err: err}
}
