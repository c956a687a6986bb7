// Package conv implements the shape arithmetic shared by sliding-window
// layers: padding policies, strides and output dimension computation.
package conv

import "fmt"

// Padding is the zero-padding policy of a sliding window.
//
// It is a closed set of variants:
//   - Valid: no padding, the window stays inside the input
//   - Same: the output spatial size is ceil(input / stride)
//   - Symmetric: p zeros on both sides of a single axis
//   - Explicit: per-axis symmetric padding for rows and columns
//
// Code that interprets a Padding must switch over these types and treat
// anything else as an unknown padding.
type Padding interface {
	fmt.Stringer
	isPadding()
}

// Valid means no padding.
type Valid struct{}

// Same pads so that the output size matches the input size at stride 1.
type Same struct{}

// Symmetric pads a single axis with the same number of zeros on both sides.
type Symmetric int

// Explicit pads rows and columns symmetrically with the given sizes.
type Explicit struct {
	Rows int
	Cols int
}

func (Valid) isPadding()     {}
func (Same) isPadding()      {}
func (Symmetric) isPadding() {}
func (Explicit) isPadding()  {}

// String returns the canonical name "VALID".
func (Valid) String() string { return "VALID" }

// String returns the canonical name "SAME".
func (Same) String() string { return "SAME" }

func (p Symmetric) String() string { return fmt.Sprintf("%d", int(p)) }

func (p Explicit) String() string { return fmt.Sprintf("(%d, %d)", p.Rows, p.Cols) }

// IsNamed reports whether p is one of the named modes (Valid or Same)
// that a backend understands natively.
func IsNamed(p Padding) bool {
	switch p.(type) {
	case Valid, Same:
		return true
	default:
		return false
	}
}

// Axis returns the padding that applies to a single spatial axis
// (0 for rows, 1 for columns). Named modes apply to every axis unchanged.
func Axis(p Padding, axis int) (Padding, error) {
	switch v := p.(type) {
	case Valid, Same, Symmetric:
		return v, nil
	case Explicit:
		switch axis {
		case 0:
			return Symmetric(v.Rows), nil
		case 1:
			return Symmetric(v.Cols), nil
		}
		return nil, &ArithmeticError{Arg: "axis", Value: axis, Reason: "spatial axis must be 0 (rows) or 1 (columns)"}
	default:
		return nil, unknownPadding(p)
	}
}

// Stride is the step between successive window applications.
type Stride struct {
	Rows int
	Cols int
}

// String renders the stride as a tuple.
func (s Stride) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

// Axis returns the stride along a spatial axis (0 for rows, 1 for columns).
func (s Stride) Axis(axis int) int {
	if axis == 0 {
		return s.Rows
	}
	return s.Cols
}
