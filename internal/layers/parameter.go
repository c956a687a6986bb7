package layers

import (
	"github.com/born-ml/layergraph/internal/tensor"
)

// Parameter is a materialized parameter tensor owned by a layer.
//
// Parameters are the contract surface for weight persistence: a store
// keys values by Name and checks them against Shape.
type Parameter struct {
	name   string         // Qualified name, e.g. "conv-1/weight"
	tensor *tensor.Tensor // The parameter values
}

// NewParameter creates a parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the qualified parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.tensor.Shape()
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}
