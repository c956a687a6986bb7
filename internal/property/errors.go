package property

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is matched by every InvalidValueError.
var ErrInvalidValue = errors.New("invalid property value")

// InvalidValueError reports a configuration value rejected at assignment.
type InvalidValueError struct {
	Owner      string // Instance the property belongs to
	Property   string // Property name
	Value      any    // Raw value as provided by the caller
	Constraint string // Violated constraint
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("invalid value %v for property %q of %s: %s", e.Value, e.Property, e.Owner, e.Constraint)
	}
	return fmt.Sprintf("invalid value %v for property %q: %s", e.Value, e.Property, e.Constraint)
}

// Is reports whether target is ErrInvalidValue.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}
