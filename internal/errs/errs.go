package errs

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindStore         Kind = "store"
	KindAuthorization Kind = "authorization"
)

// Error is the error every service operation returns to its caller: a
// human readable message plus a kind the transport can switch on.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil && e.Kind == KindStore {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

func Authorization(format string, args ...any) error {
	return newf(KindAuthorization, format, args...)
}

// Store wraps an unexpected error from the backing store.
func Store(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return &Error{Kind: KindStore, Msg: msg, cause: errors.WithStack(err)}
}

// Wrap attaches a kind to a known error, keeping it reachable via errors.Is.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, cause: err}
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err; anything unclassified counts as a store error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindStore
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
