package graph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidConnection is matched by every InvalidConnectionError.
var ErrInvalidConnection = errors.New("invalid connection")

// InvalidConnectionError reports a graph topology that cannot be built:
// cycles, forbidden fan-in or fan-out, foreign or duplicate layers, and
// predecessors whose shapes a layer cannot combine.
type InvalidConnectionError struct {
	Reason string   // Violated constraint
	Layers []string // Names of the layers involved
	Cause  error    // Underlying shape error, if any
}

// Error implements the error interface.
func (e *InvalidConnectionError) Error() string {
	msg := fmt.Sprintf("invalid connection [%s]: %s", strings.Join(e.Layers, " -> "), e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is ErrInvalidConnection.
func (e *InvalidConnectionError) Is(target error) bool {
	return target == ErrInvalidConnection
}

// Unwrap returns the underlying error.
func (e *InvalidConnectionError) Unwrap() error {
	return e.Cause
}
