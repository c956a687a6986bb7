package layers

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

var maxPoolingProps = []*property.Descriptor{
	{
		Name:     "size",
		Doc:      "Pooling window (rows, cols).",
		Rule:     property.IntTuple{Arity: 2, Min: 1},
		Required: true,
	},
	{
		Name:     "stride",
		Doc:      "Step between windows; defaults to the window size.",
		Rule:     property.Stride{},
		Nullable: true,
	},
	{
		Name:    "padding",
		Doc:     "VALID or SAME.",
		Rule:    property.Padding{NamedOnly: true},
		Default: "valid",
	},
}

// MaxPooling takes the per-channel maximum over sliding windows of a
// (rows, cols, channels) input. It has no parameters.
type MaxPooling struct {
	*base
}

// NewMaxPooling creates a max pooling layer.
func NewMaxPooling(props Props) (*MaxPooling, error) {
	l := &MaxPooling{}
	b, err := newBase("max_pooling", maxPoolingProps, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Size returns the pooling window.
func (l *MaxPooling) Size() [2]int {
	size := l.props.Get("size").([]int)
	return [2]int{size[0], size[1]}
}

// Stride returns the configured stride, or the window size if unset.
func (l *MaxPooling) Stride() conv.Stride {
	if s, ok := l.props.Get("stride").(conv.Stride); ok {
		return s
	}
	size := l.Size()
	return conv.Stride{Rows: size[0], Cols: size[1]}
}

// Padding returns VALID or SAME.
func (l *MaxPooling) Padding() conv.Padding {
	return l.props.Get("padding").(conv.Padding)
}

// Resolve checks for a single (rows, cols, channels) input and computes
// the pooled shape.
func (l *MaxPooling) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	in, err := l.singleInput(inputs)
	if err != nil {
		return nil, err
	}
	if len(in) != 3 {
		return nil, &ConnectionError{
			Layer:  l.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("pooling layer expects an input with 3 dimensions, got %d with shape %v", len(in), in),
		}
	}

	size := l.Size()
	stride := l.Stride()
	out := tensor.Shape{0, 0, in[2]}
	for axis := 0; axis < 2; axis++ {
		dim, err := conv.OutputDim(in[axis], size[axis], l.Padding(), stride.Axis(axis))
		if err != nil {
			return nil, &ConnectionError{Layer: l.name, Inputs: inputs, Reason: err.Error(), Cause: err}
		}
		out[axis] = dim
	}
	return out, nil
}

// Output pools the input.
func (l *MaxPooling) Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkOutputInputs(inputs); err != nil {
		return nil, err
	}
	out, err := b.MaxPool2D(inputs[0], l.Size(), l.Stride(), l.Padding())
	if err != nil {
		return nil, errors.Wrapf(err, "layer %q", l.name)
	}
	return out, nil
}
