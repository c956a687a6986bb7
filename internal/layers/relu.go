package layers

import (
	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

// ReLU applies max(0, x) element-wise. It preserves the input shape.
type ReLU struct {
	*base
}

// NewReLU creates a ReLU activation layer.
func NewReLU(props Props) (*ReLU, error) {
	l := &ReLU{}
	b, err := newBase("relu", []*property.Descriptor{}, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Resolve returns the single input shape unchanged.
func (l *ReLU) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	in, err := l.singleInput(inputs)
	if err != nil {
		return nil, err
	}
	return in.Clone(), nil
}

// Output applies the activation.
func (l *ReLU) Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkOutputInputs(inputs); err != nil {
		return nil, err
	}
	return b.ReLU(inputs[0]), nil
}
