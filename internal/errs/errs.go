// Package errs defines the error kinds shared by the repository, service
// and handler layers. Services return errors built with the helpers below;
// handlers translate the kind into an HTTP status with errors.Is and pull the
// user-facing message out with errors.As.
package errs

import (
	"errors"
	"fmt"

	cr "github.com/cockroachdb/errors"
)

// Kind sentinels. Compare with errors.Is.
var (
	ErrValidation         = cr.New("validation error")
	ErrNotFound           = cr.New("not found")
	ErrForbidden          = cr.New("forbidden")
	ErrConflict           = cr.New("conflict")
	ErrFailedPrecondition = cr.New("failed precondition")
	ErrAlreadyExists      = cr.New("already exists")
	ErrUnauthenticated    = cr.New("unauthenticated")
)

// Error is a classified error. Message is safe to show to end users; Field
// is set for validation failures that concern a single input field.
type Error struct {
	Kind    error
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is the kind sentinel of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.cause }

func newKind(kind error, field, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:    kind,
		Field:   field,
		Message: msg,
		// cr.NewWithDepth records the caller's stack for %+v logging.
		cause: cr.NewWithDepth(2, msg),
	}
}

// Validation reports malformed input for the named field.
func Validation(field, format string, args ...any) error {
	return newKind(ErrValidation, field, format, args...)
}

func NotFound(format string, args ...any) error {
	return newKind(ErrNotFound, "", format, args...)
}

func Forbidden(format string, args ...any) error {
	return newKind(ErrForbidden, "", format, args...)
}

// Conflict reports a booking collision. The message is shown verbatim to
// the end user so it should say what to do next.
func Conflict(format string, args ...any) error {
	return newKind(ErrConflict, "", format, args...)
}

func FailedPrecondition(format string, args ...any) error {
	return newKind(ErrFailedPrecondition, "", format, args...)
}

func AlreadyExists(format string, args ...any) error {
	return newKind(ErrAlreadyExists, "", format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return newKind(ErrUnauthenticated, "", format, args...)
}

// Wrap annotates err with msg and a stack trace. A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

// Classify returns the classified error inside err, or nil when err carries
// no kind (an internal failure).
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Detail renders err with its stack for logs.
func Detail(err error) string {
	return fmt.Sprintf("%+v", err)
}
