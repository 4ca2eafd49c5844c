package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// UserError carries a message meant to be displayed to the user as is.
type UserError struct {
	Message string
	Err     error
}

func NewUserError(msg string, err ...error) error {
	uErr := &UserError{Message: msg}
	if len(err) > 0 {
		uErr.Err = err[0]
	}
	return uErr
}

func (err *UserError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err *UserError) Unwrap() error { return err.Err }

// UserMessage returns the message of the first UserError found in err's chain, or fallback.
func UserMessage(err error, fallback string) string {
	var uErr *UserError
	if errors.As(err, &uErr) {
		return uErr.Message
	}
	return fallback
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
