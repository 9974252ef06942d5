package approval

import (
	"errors"
	"fmt"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/validation"
)

var (
	// ErrCancelled is returned when the context ends before a decision arrives.
	ErrCancelled = errors.New("approval cancelled")
	// ErrDenied matches every DenialError.
	ErrDenied = errors.New("action denied")
	// ErrInvalidAction matches every ValidationError.
	ErrInvalidAction = errors.New("invalid action request")
	ErrRequestAction = errors.New("failed to request action")
	ErrSurface       = errors.New("failed to open approval surface")
)

// DenialError is returned when the user rejects an action.
type DenialError struct {
	UUID string
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("action %s was denied by the user", e.UUID)
}

func (e *DenialError) Is(target error) bool {
	return target == ErrDenied
}

// ValidationError is returned for requests rejected before any network call.
type ValidationError struct {
	Fields []validation.FieldError
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidAction, validation.Describe(e.err))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidAction
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
