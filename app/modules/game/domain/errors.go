package gamedomain

import (
	"errors"
	"fmt"
)

// Rule violations raised while constructing frames. Callers match them with
// errors.Is; ValidationError carries the offending values.
var (
	// ErrMissingRoll indicates a required roll was not supplied.
	ErrMissingRoll = errors.New("roll is missing")

	// ErrRollRange indicates a roll outside [0,10].
	ErrRollRange = errors.New("roll values must be between 0 and 10")

	// ErrRollSum indicates two rolls in one rack knocked down more than 10 pins.
	ErrRollSum = errors.New("the sum of two rolls in a frame cannot exceed 10")

	// ErrFinalFrameLegality indicates a tenth frame whose rolls cannot occur in a real game.
	ErrFinalFrameLegality = errors.New("illegal final frame")
)

// ErrorKind names the validation rule a frame violated.
type ErrorKind string

const (
	KindMissingRoll        ErrorKind = "missing_roll"
	KindRollRange          ErrorKind = "roll_range"
	KindRollSum            ErrorKind = "roll_sum"
	KindFinalFrameLegality ErrorKind = "final_frame_legality"
)

// ValidationError reports which construction rule failed and why.
type ValidationError struct {
	Kind   ErrorKind
	Detail string
	err    error
}

func newValidationError(kind ErrorKind, sentinel error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		err:    sentinel,
	}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// IsValidationError reports whether err is a frame validation failure.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
