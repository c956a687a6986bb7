package conv

import (
	"errors"
	"fmt"
)

// ErrArithmetic is matched by every ArithmeticError.
var ErrArithmetic = errors.New("shape arithmetic error")

// ArithmeticError reports malformed arguments reaching the shape arithmetic.
type ArithmeticError struct {
	Arg    string // Offending argument (e.g. "stride", "padding")
	Value  any    // Offending value
	Reason string // Violated constraint
}

// Error implements the error interface.
func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("shape arithmetic: %s=%v (%T): %s", e.Arg, e.Value, e.Value, e.Reason)
}

// Is reports whether target is ErrArithmetic.
func (e *ArithmeticError) Is(target error) bool {
	return target == ErrArithmetic
}

func unknownPadding(p Padding) error {
	return &ArithmeticError{Arg: "padding", Value: p, Reason: "unknown convolution padding value"}
}
