package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and client behavior.
// IncompleteProfile and UpstreamUnavailable must stay distinct: the UI tells
// the user to finish their profile for the former and to retry for the latter.
type Kind string

const (
	InvalidInput        Kind = "invalid_input"
	Unauthenticated     Kind = "unauthenticated"
	NotFound            Kind = "not_found"
	IncompleteProfile   Kind = "incomplete_profile"
	LimitExceeded       Kind = "limit_exceeded"
	UpstreamUnavailable Kind = "upstream_unavailable"
	MalformedResponse   Kind = "malformed_response"
	PersistenceError    Kind = "persistence_error"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to PersistenceError
// for plain database errors and a generic internal classification otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return PersistenceError
}

// Status maps a Kind to the HTTP status code the API surface uses. Upstream
// and parse failures collapse to 500 for the client; the detailed cause goes
// to server logs only.
func Status(kind Kind) int {
	switch kind {
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case IncompleteProfile:
		return http.StatusUnprocessableEntity
	case LimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage is what goes over the wire. Internal kinds get a generic
// message; user-actionable kinds keep their text.
func ClientMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return "internal server error"
	}
	switch ae.Kind {
	case UpstreamUnavailable:
		return "service temporarily unavailable, please try again"
	case MalformedResponse, PersistenceError:
		return "internal server error"
	default:
		return ae.Msg
	}
}
