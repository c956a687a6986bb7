package layers

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

var concatenateProps = []*property.Descriptor{
	{
		Name:    "axis",
		Doc:     "Sample axis to concatenate along; negative values count from the end.",
		Rule:    property.Int{},
		Default: -1,
	},
}

// Concatenate merges several inputs along one axis. It is the layer kind
// that accepts more than one predecessor.
type Concatenate struct {
	*base
}

// NewConcatenate creates a concatenation layer.
func NewConcatenate(props Props) (*Concatenate, error) {
	l := &Concatenate{}
	b, err := newBase("concatenate", concatenateProps, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Axis returns the configured axis as given, possibly negative.
func (l *Concatenate) Axis() int {
	return l.props.Get("axis").(int)
}

// Resolve checks that inputs agree in rank and in every dimension but the
// concatenation axis, and sums that axis.
func (l *Concatenate) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) == 0 {
		return nil, &ConnectionError{Layer: l.name, Reason: "concatenate layer expects at least one input"}
	}
	for _, in := range inputs {
		if in == nil {
			return nil, &ConnectionError{Layer: l.name, Inputs: inputs, Reason: "input shape is unresolved"}
		}
	}

	first := inputs[0]
	rank := len(first)
	axis := l.Axis()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, &ConnectionError{
			Layer:  l.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("axis %d is out of range for inputs of rank %d", l.Axis(), rank),
		}
	}

	out := first.Clone()
	for i, in := range inputs[1:] {
		if len(in) != rank {
			return nil, &ConnectionError{
				Layer:  l.name,
				Inputs: inputs,
				Reason: fmt.Sprintf("input %d has rank %d, expected %d", i+1, len(in), rank),
			}
		}
		for d := range in {
			if d == axis {
				if out[d] == tensor.Unknown || in[d] == tensor.Unknown {
					out[d] = tensor.Unknown
				} else {
					out[d] += in[d]
				}
				continue
			}
			switch {
			case out[d] == tensor.Unknown:
				out[d] = in[d]
			case in[d] != tensor.Unknown && in[d] != out[d]:
				return nil, &ConnectionError{
					Layer:  l.name,
					Inputs: inputs,
					Reason: fmt.Sprintf("inputs disagree on dimension %d: %d vs %d", d, out[d], in[d]),
				}
			}
		}
	}
	return out, nil
}

// Output concatenates the input tensors.
func (l *Concatenate) Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkOutputInputs(inputs); err != nil {
		return nil, err
	}

	// Tensors carry a leading batch dimension.
	axis := l.Axis()
	if axis >= 0 {
		axis++
	}
	out, err := b.Concat(inputs, axis)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %q", l.name)
	}
	return out, nil
}
