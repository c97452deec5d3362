package service

import (
	"errors"
	"fmt"
)

// Error kinds for the API boundary. Handlers map these to HTTP statuses with
// errors.Is; anything unmatched is an unexpected 500.
var (
	ErrInvalid      = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// requestError carries a client-facing message tagged with one of the error
// kinds above
type requestError struct {
	kind error
	msg  string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.kind }

func invalidf(format string, args ...interface{}) error {
	return &requestError{kind: ErrInvalid, msg: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...interface{}) error {
	return &requestError{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...interface{}) error {
	return &requestError{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) error {
	return &requestError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}
