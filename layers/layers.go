// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides configurable layers with shape inference.
//
// # Overview
//
// Every layer is declared from typed properties that are validated on
// assignment, then resolves its output shape from its input shapes:
//   - Input: graph entry point with a declared sample shape
//   - Convolution: 2D convolution with named or explicit padding
//   - ReLU, MaxPooling, Reshape: single-input transformations
//   - Concatenate: merges several branches along one axis
//
// # Basic Usage
//
//	input, _ := layers.NewInput(layers.Props{"shape": []int{28, 28, 1}})
//	conv, _ := layers.NewConvolution(layers.Props{
//	    "size":    []int{3, 3, 16},
//	    "padding": "same",
//	    "stride":  2,
//	})
//
//	out, err := conv.Resolve([]tensor.Shape{input.OutputShape()}) // (14, 14, 16)
//
// Layers can also be built by kind name, as graph descriptions do:
//
//	pool, err := layers.New("max_pooling", layers.Props{"size": []int{2, 2}})
package layers

import (
	"github.com/born-ml/layergraph/internal/layers"
	"github.com/born-ml/layergraph/internal/property"
)

// Layer is a configured computation node.
type Layer = layers.Layer

// Props holds raw property values keyed by property name.
type Props = layers.Props

// Topology declares how a layer kind may be wired into a graph.
type Topology = layers.Topology

// Backend computes layer outputs.
type Backend = layers.Backend

// Parameter is a materialized weight or bias.
type Parameter = layers.Parameter

// KindInfo describes a registered layer kind.
type KindInfo = layers.KindInfo

// Layer kinds.
type (
	Input       = layers.Input
	Convolution = layers.Convolution
	ReLU        = layers.ReLU
	MaxPooling  = layers.MaxPooling
	Concatenate = layers.Concatenate
	Reshape     = layers.Reshape
)

// Initializers.
type (
	Initializer   = layers.Initializer
	Constant      = layers.Constant
	XavierUniform = layers.XavierUniform
	HeNormal      = layers.HeNormal
)

// ConnectionError reports input shapes a layer cannot accept.
type ConnectionError = layers.ConnectionError

// InvalidPropertyError reports a property value that failed validation.
type InvalidPropertyError = property.InvalidValueError

// Sentinels for errors.Is.
var (
	ErrConnection      = layers.ErrConnection
	ErrInvalidProperty = property.ErrInvalidValue
)

// New builds a layer of the given kind.
func New(kind string, props Props) (Layer, error) {
	return layers.New(kind, props)
}

// Kinds returns the registered kind names.
func Kinds() []string {
	return layers.Kinds()
}

// Describe returns the documentation and properties of a kind.
func Describe(kind string) (KindInfo, error) {
	return layers.Describe(kind)
}

// NewInput creates an input layer.
func NewInput(props Props) (*Input, error) { return layers.NewInput(props) }

// NewConvolution creates a convolutional layer.
func NewConvolution(props Props) (*Convolution, error) { return layers.NewConvolution(props) }

// NewReLU creates a ReLU activation layer.
func NewReLU(props Props) (*ReLU, error) { return layers.NewReLU(props) }

// NewMaxPooling creates a max pooling layer.
func NewMaxPooling(props Props) (*MaxPooling, error) { return layers.NewMaxPooling(props) }

// NewConcatenate creates a concatenation layer.
func NewConcatenate(props Props) (*Concatenate, error) { return layers.NewConcatenate(props) }

// NewReshape creates a reshape layer.
func NewReshape(props Props) (*Reshape, error) { return layers.NewReshape(props) }
