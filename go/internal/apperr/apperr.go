// Package apperr provides the structured errors returned by the game night core.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindUnknown                Kind = "UNKNOWN"
	KindInvalidArgument        Kind = "INVALID_ARGUMENT"
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindDuplicateRSVP          Kind = "DUPLICATE_RSVP"
	KindEventClosed            Kind = "EVENT_CLOSED"
	KindNotFound               Kind = "NOT_FOUND"
	KindInsufficientPlayers    Kind = "INSUFFICIENT_PLAYERS"
	KindInsufficientCourts     Kind = "INSUFFICIENT_COURTS"
	KindStoreUnavailable       Kind = "STORE_UNAVAILABLE"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrDuplicateRSVP          = &Error{Kind: KindDuplicateRSVP}
	ErrEventClosed            = &Error{Kind: KindEventClosed}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInsufficientPlayers    = &Error{Kind: KindInsufficientPlayers}
	ErrInsufficientCourts     = &Error{Kind: KindInsufficientCourts}
	ErrStoreUnavailable       = &Error{Kind: KindStoreUnavailable}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
)

// Error is a domain error. Fields carries the identifiers a caller needs to
// render a message (event_id, rsvp_id, from, to, ...).
type Error struct {
	Kind   Kind
	Op     string
	Fields map[string]string
	Err    error
}

// New returns an error of kind k raised by op.
func New(k Kind, op string) *Error {
	return &Error{Kind: k, Op: op}
}

// Wrap returns an error of kind k raised by op with cause err.
func Wrap(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// With attaches an identifier field and returns e.
func (e *Error) With(key, value string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the kind from any error.
// Returns KindUnknown if the error is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldsOf extracts identifier fields from an error if present.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Retryable reports whether err is a lost race that may succeed on retry.
func Retryable(err error) bool {
	return KindOf(err) == KindConcurrentModification
}
