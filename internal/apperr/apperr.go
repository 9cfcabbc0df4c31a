// Package apperr carries the error kinds every service returns so the HTTP
// edge can map them onto response envelopes without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInvalidOperation
	KindInvalidToken
	KindUnauthorized
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnauthorized:
		return "unauthorized"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unexpected"
	}
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Invalid(msg string) *Error      { return &Error{Kind: KindInvalidOperation, Message: msg} }
func InvalidToken(msg string) *Error { return &Error{Kind: KindInvalidToken, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Duplicate(msg string) *Error    { return &Error{Kind: KindDuplicate, Message: msg} }

// Unexpected wraps an infrastructure failure. A nil err yields nil.
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

// Unexpectedf wraps err with a formatted operation description.
func Unexpectedf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Unexpected(fmt.Errorf(format+": %w", append(args, err)...))
}

// KindOf reports the kind of err. Unclassified errors are KindUnexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client-facing message of a classified error, or the
// raw error text otherwise.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
