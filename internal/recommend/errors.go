package recommend

import (
	"errors"
	"fmt"
)

// Kind classifies errors returned to callers of the engine.
type Kind string

const (
	KindValidation Kind = "validation"
	KindInternal   Kind = "internal"
)

var (
	ErrInvalidTopN  = errors.New("top_n must be a positive integer")
	ErrMissingJobID = errors.New("job id is required")
)

// internalMessage is the only detail shown to callers for internal failures.
const internalMessage = "failed to compute recommendations"

// Error is returned by Engine.Recommend. Message is safe to show to callers;
// Err carries the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
