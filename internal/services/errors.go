package services

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrRateLimitExceeded = errors.New("daily limit reached")
	ErrAlreadySolved     = errors.New("post already has a best answer")
	ErrAlreadyOwned      = errors.New("companion already adopted")
	ErrInvalidTemplate   = errors.New("companion template cannot be adopted")
	ErrAlreadyExists     = errors.New("already exists")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrStore             = errors.New("store failure")
)

// Error carries the failing operation and a human-readable message along
// with one of the kinds above.
type Error struct {
	Op      string // e.g. "ToggleLike"
	Kind    error
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

func newError(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func storeError(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrStore, Message: "store failure", Err: err}
}

// KindOf returns the kind of err, or ErrStore for errors that did not come
// from this package.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	return ErrStore
}
