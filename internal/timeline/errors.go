package timeline

import (
	"errors"
	"fmt"

	"github.com/leca/ourstory/internal/database"
)

// Sentinel error kinds. Callers classify with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Error is a classified failure whose message is safe to show to clients.
type Error struct {
	Kind   error
	Msg    string
	Detail error
}

func (e *Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Detail)
	}
	return e.Msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Detail != nil {
		return []error{e.Kind, e.Detail}
	}
	return []error{e.Kind}
}

// PublicMessage is the client-facing text, without Detail.
func (e *Error) PublicMessage() string { return e.Msg }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func validationError(msg string) error { return newError(ErrValidation, msg) }

// notFound converts a database miss into a classified error and passes
// anything else through.
func notFound(err error, msg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Msg: msg, Detail: err}
	}
	return err
}
