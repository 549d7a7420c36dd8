// Package apperr defines the error kinds surfaced by the account services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of its message.
type Kind string

const (
	KindUnknown              Kind = "UNKNOWN"
	KindNotFound             Kind = "NOT_FOUND"
	KindInvalidFormat        Kind = "INVALID_FORMAT"
	KindInvalidOtp           Kind = "INVALID_OTP"
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindAccountStateConflict Kind = "ACCOUNT_STATE_CONFLICT"
	KindAlreadyExists        Kind = "ALREADY_EXISTS"
	KindExpired              Kind = "EXPIRED"
	KindInvalidToken         Kind = "INVALID_TOKEN"
	KindInvalidPhone         Kind = "INVALID_PHONE"
	KindInvalidInput         Kind = "INVALID_INPUT"
	KindNotInitiated         Kind = "NOT_INITIATED"
)

// Error is a classified error. Sentinels are compared by identity, so
// errors.Is(err, ErrX) works through any amount of wrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err's kind to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindNotInitiated:
		return http.StatusNotFound
	case KindInvalidFormat, KindInvalidInput, KindInvalidPhone:
		return http.StatusBadRequest
	case KindInvalidOtp, KindInvalidToken, KindInvalidCredentials, KindExpired:
		return http.StatusUnauthorized
	case KindAccountStateConflict, KindAlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
