// Package tensor defines shapes and the dense tensors exchanged with numeric backends.
package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Unknown marks a dimension whose size is not yet resolved.
const Unknown = -1

// Shape represents the dimensions of a tensor.
//
// A dimension is either a positive size or Unknown. Layer shapes never
// include the batch dimension; tensors handed to a backend always do.
type Shape []int

// Of builds a shape from its dimensions.
func Of(dims ...int) Shape {
	return Shape(dims)
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// IsKnown reports whether every dimension is resolved.
func (s Shape) IsKnown() bool {
	for _, dim := range s {
		if dim == Unknown {
			return false
		}
	}
	return true
}

// NumElements returns the total number of elements in the tensor.
// It returns Unknown if any dimension is unknown.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		if dim == Unknown {
			return Unknown
		}
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive or Unknown.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 && dim != Unknown {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal. Unknown only equals Unknown.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether two shapes have the same rank and agree on
// every dimension known in both.
func (s Shape) Compatible(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != Unknown && other[i] != Unknown && s[i] != other[i] {
			return false
		}
	}
	return true
}

// Merge fills the unknown dimensions of s from other.
// The shapes must be Compatible.
func (s Shape) Merge(other Shape) (Shape, error) {
	if !s.Compatible(other) {
		return nil, fmt.Errorf("shapes %v and %v are not compatible", s, other)
	}
	merged := s.Clone()
	for i, dim := range merged {
		if dim == Unknown {
			merged[i] = other[i]
		}
	}
	return merged, nil
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// WithBatch prepends a batch dimension.
func (s Shape) WithBatch(batch int) Shape {
	return append(Shape{batch}, s...)
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// String renders the shape as a tuple, with unknown dimensions shown as "?".
func (s Shape) String() string {
	if s == nil {
		return "<unresolved>"
	}
	parts := make([]string, len(s))
	for i, dim := range s {
		if dim == Unknown {
			parts[i] = "?"
			continue
		}
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Parse reads a shape written as comma separated dimensions, e.g. "28,28,3"
// or "(?, ?, 3)". Both "?" and "-1" denote an unknown dimension.
func Parse(text string) (Shape, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	if strings.TrimSpace(text) == "" {
		return Shape{}, nil
	}

	fields := strings.Split(text, ",")
	shape := make(Shape, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "?" {
			shape = append(shape, Unknown)
			continue
		}
		dim, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q in shape %q", field, text)
		}
		shape = append(shape, dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}
