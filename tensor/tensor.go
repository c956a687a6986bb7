// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides shapes and dense tensors for layer graphs.
//
// Shapes describe one sample and may contain Unknown dimensions while a
// graph is being assembled. Tensors are dense float64 NHWC arrays with a
// leading batch dimension.
//
// Example:
//
//	s, _ := tensor.Parse("(?, ?, 3)")     // (?, ?, 3)
//	x := tensor.Ones(tensor.Of(1, 5, 5, 1))
package tensor

import (
	"github.com/born-ml/layergraph/internal/tensor"
)

// Unknown marks a dimension that is not resolved yet.
const Unknown = tensor.Unknown

// Shape is an ordered list of dimensions.
type Shape = tensor.Shape

// Tensor is a dense row-major float64 array.
type Tensor = tensor.Tensor

// Of builds a shape from its dimensions.
func Of(dims ...int) Shape {
	return tensor.Of(dims...)
}

// Parse reads a shape such as "28,28,3" or "(?, ?, 3)".
func Parse(text string) (Shape, error) {
	return tensor.Parse(text)
}

// New creates a tensor backed by data without copying.
func New(shape Shape, data []float64) (*Tensor, error) {
	return tensor.New(shape, data)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}
