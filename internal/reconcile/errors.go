package reconcile

import (
	"errors"
	"fmt"
)

// ErrInput marks requests rejected before any solve is attempted.
var ErrInput = errors.New("invalid input")

// ErrModelTooLarge is returned when scaled amounts would overflow the
// integer model.
var ErrModelTooLarge = errors.New("model too large")

type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInput, e.Err}
	}
	return []error{ErrInput}
}

func inputErrorf(format string, args ...interface{}) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err should be answered as a client error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInput)
}
