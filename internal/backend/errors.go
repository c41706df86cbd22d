package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a backend failure.
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindNetwork  Kind = "network"
	KindServer   Kind = "server"
	KindInvalid  Kind = "invalid"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrNetwork  = &Error{Kind: KindNetwork}
	ErrServer   = &Error{Kind: KindServer}
	ErrInvalid  = &Error{Kind: KindInvalid}
)

// Error is returned by every Client method.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error renders op, kind, status and message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("backend: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the transport or decode error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the Err* values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" when err is not a backend error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindInvalid
	}
}
