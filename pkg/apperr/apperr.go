// Package apperr holds the error kinds shared by the catalog, lending and
// payment services. Every error carries the message shown to the patron and
// a kind sentinel callers match with errors.Is.
package apperr

import "errors"

var (
	ErrInvalid  = errors.New("invalid input")
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("rejected by library policy")
	ErrStorage  = errors.New("database error")
	ErrDeclined = errors.New("payment declined")
	ErrGateway  = errors.New("payment gateway unavailable")
)

type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Invalid(msg string) error {
	return &Error{Kind: ErrInvalid, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Storage(msg string, cause error) error {
	return &Error{Kind: ErrStorage, Message: msg, Err: cause}
}

func Declined(msg string) error {
	return &Error{Kind: ErrDeclined, Message: msg}
}

func Gateway(msg string, cause error) error {
	return &Error{Kind: ErrGateway, Message: msg, Err: cause}
}

// Message returns the patron-facing message of err, falling back to
// err.Error() for errors that did not come from this package.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
