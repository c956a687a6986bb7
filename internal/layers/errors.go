package layers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/layergraph/internal/tensor"
)

// ErrConnection is matched by every ConnectionError.
var ErrConnection = errors.New("layer connection error")

// ConnectionError reports input shapes a layer cannot accept.
type ConnectionError struct {
	Layer  string         // Layer name
	Inputs []tensor.Shape // Offending input shapes, if any
	Reason string         // Violated expectation
	Cause  error          // Underlying error, if any
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if len(e.Inputs) == 0 {
		return fmt.Sprintf("layer %q: %s", e.Layer, e.Reason)
	}
	shapes := make([]string, len(e.Inputs))
	for i, s := range e.Inputs {
		shapes[i] = s.String()
	}
	return fmt.Sprintf("layer %q with inputs %s: %s", e.Layer, strings.Join(shapes, ", "), e.Reason)
}

// Is reports whether target is ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
