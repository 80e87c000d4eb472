// Package source is the boundary between queries and the remote data source.
//
// Remote failures arrive in whatever shape the backend uses. Convert maps
// them into *Error, a closed set of kinds, so callers can classify failures
// without inspecting strings.
package source

import (
	"context"
	"errors"
	"net"
	"strings"
)

// DefaultMessage is shown when an error carries no readable text.
const DefaultMessage = "An unexpected error occurred"

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindNotFound
	KindPermissionDenied
	KindInvalid
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified data source failure.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Hint    string
	Code    string
	Err     error
}

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err as kind. A nil err returns nil.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("source: ")
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.text())
	if e.Code != "" {
		b.WriteString(" (code ")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func (e *Error) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Details != "":
		return e.Details
	case e.Hint != "":
		return e.Hint
	case e.Err != nil && e.Err.Error() != "":
		return e.Err.Error()
	default:
		return DefaultMessage
	}
}

// Kind sentinels for errors.Is.
var (
	ErrTransient        = &Error{Kind: KindTransient}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrInvalid          = &Error{Kind: KindInvalid}
	ErrConflict         = &Error{Kind: KindConflict}
)

// RemoteError is the error shape returned by the backend alongside data.
type RemoteError struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	Code    string `json:"code"`
}

func (r *RemoteError) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return DefaultMessage
}

// Convert maps any error into *Error. A nil err returns nil.
func Convert(err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return &Error{
			Kind:    codeKind(re.Code),
			Message: re.Message,
			Details: re.Details,
			Hint:    re.Hint,
			Code:    re.Code,
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransient, Message: "request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request cancelled", Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return &Error{Kind: KindTransient, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err after conversion.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(Convert(err), &se) {
		return se.Kind
	}
	return KindUnknown
}

// Message returns the user-facing text for err: message, then details, then
// hint, then the error string, then DefaultMessage.
func Message(err error) string {
	if err == nil {
		return DefaultMessage
	}
	var se *Error
	if errors.As(err, &se) {
		return se.text()
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return (&Error{Message: re.Message, Details: re.Details, Hint: re.Hint}).text()
	}
	if s := err.Error(); s != "" {
		return s
	}
	return DefaultMessage
}

// Retryable reports whether err may succeed on a later attempt. Transient
// and unclassified errors are retryable; cancellation and terminal kinds
// are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch KindOf(err) {
	case KindTransient, KindUnknown:
		return true
	default:
		return false
	}
}

// codeKind maps PostgREST and Postgres error codes.
func codeKind(code string) Kind {
	switch {
	case code == "":
		return KindUnknown
	case code == "PGRST116" || code == "PGRST205":
		return KindNotFound
	case code == "42501" || code == "PGRST301" || code == "PGRST302":
		return KindPermissionDenied
	case code == "23505":
		return KindConflict
	case strings.HasPrefix(code, "22"), code == "23502", code == "23503", code == "23514", code == "PGRST100":
		return KindInvalid
	case strings.HasPrefix(code, "08"), code == "57014", code == "53300", code == "PGRST000", code == "PGRST001", code == "PGRST002":
		return KindTransient
	default:
		return KindUnknown
	}
}
