package layers

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

var convolutionProps = []*property.Descriptor{
	{
		Name:     "size",
		Doc:      "Filter shape (filter rows, filter columns, output channels).",
		Rule:     property.IntTuple{Arity: 3, Min: 1},
		Required: true,
	},
	{
		Name:    "padding",
		Doc:     "VALID, SAME, an integer or a (rows, cols) tuple of zero padding.",
		Rule:    property.Padding{},
		Default: "valid",
	},
	{
		Name:    "stride",
		Doc:     "Step between filter applications: an integer, (rows) or (rows, cols).",
		Rule:    property.Stride{},
		Default: []int{1, 1},
	},
	{
		Name:    "weight",
		Doc:     "Weight initializer; a number means a constant value.",
		Rule:    initializerRule{},
		Default: XavierUniform{},
	},
	{
		Name:     "bias",
		Doc:      "Bias initializer; null disables the bias.",
		Rule:     initializerRule{},
		Default:  Constant(0),
		Nullable: true,
	},
}

// Convolution is a 2D convolutional layer over (rows, cols, channels)
// inputs.
//
// Output shape: (out_rows, out_cols, out_channels) where out_rows and
// out_cols follow conv.OutputDim for the configured padding and stride.
//
// Weight shape: (filter_rows, filter_cols, in_channels, out_channels)
// Bias shape:   (out_channels)
//
// Example:
//
//	conv, err := layers.NewConvolution(layers.Props{
//	    "size":    []int{3, 3, 16},
//	    "padding": "same",
//	    "stride":  2,
//	})
type Convolution struct {
	*base
}

// NewConvolution creates a convolutional layer.
func NewConvolution(props Props) (*Convolution, error) {
	l := &Convolution{}
	b, err := newBase("convolution", convolutionProps, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Size returns (filter rows, filter columns, output channels).
func (l *Convolution) Size() [3]int {
	size := l.props.Get("size").([]int)
	return [3]int{size[0], size[1], size[2]}
}

// Padding returns the normalized padding.
func (l *Convolution) Padding() conv.Padding {
	return l.props.Get("padding").(conv.Padding)
}

// Stride returns the normalized stride.
func (l *Convolution) Stride() conv.Stride {
	return l.props.Get("stride").(conv.Stride)
}

// UseBias reports whether the layer adds a bias.
func (l *Convolution) UseBias() bool {
	return l.props.Get("bias") != nil
}

// Resolve checks for a single (rows, cols, channels) input and computes
// the output shape.
func (l *Convolution) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	in, err := l.singleInput(inputs)
	if err != nil {
		return nil, err
	}
	if len(in) != 3 {
		return nil, &ConnectionError{
			Layer:  l.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("convolutional layer expects an input with 3 dimensions, got %d with shape %v", len(in), in),
		}
	}

	size := l.Size()
	stride := l.Stride()
	out := make(tensor.Shape, 3)
	for axis := 0; axis < 2; axis++ {
		padding, err := conv.Axis(l.Padding(), axis)
		if err != nil {
			return nil, err
		}
		dim, err := conv.OutputDim(in[axis], size[axis], padding, stride.Axis(axis))
		if err != nil {
			return nil, &ConnectionError{Layer: l.name, Inputs: inputs, Reason: err.Error(), Cause: err}
		}
		out[axis] = dim
	}
	out[2] = size[2]
	return out, nil
}

// WeightShape returns (filter_rows, filter_cols, in_channels,
// out_channels), or nil while the input channels are unknown.
func (l *Convolution) WeightShape() tensor.Shape {
	in := l.InputShape()
	if len(in) != 3 || in[2] == tensor.Unknown {
		return nil
	}
	size := l.Size()
	return tensor.Shape{size[0], size[1], in[2], size[2]}
}

// BiasShape returns (out_channels), or nil when the bias is disabled.
func (l *Convolution) BiasShape() tensor.Shape {
	if !l.UseBias() {
		return nil
	}
	return tensor.Shape{l.Size()[2]}
}

// Weight returns the materialized weight, or nil before Initialize.
func (l *Convolution) Weight() *Parameter {
	if len(l.params) == 0 {
		return nil
	}
	return l.params[0]
}

// Bias returns the materialized bias, or nil before Initialize or when
// the bias is disabled.
func (l *Convolution) Bias() *Parameter {
	if len(l.params) < 2 {
		return nil
	}
	return l.params[1]
}

// Initialize materializes the weight and, if enabled, the bias.
func (l *Convolution) Initialize() error {
	if _, err := l.requireKnown(); err != nil {
		return err
	}

	weightShape := l.WeightShape()
	receptive := weightShape[0] * weightShape[1]
	fanIn := receptive * weightShape[2]
	fanOut := receptive * weightShape[3]

	weightInit := l.props.Get("weight").(Initializer)
	params := []*Parameter{
		NewParameter(l.name+"/weight", weightInit.Sample(weightShape, fanIn, fanOut)),
	}
	if biasInit, ok := l.props.Get("bias").(Initializer); ok {
		params = append(params, NewParameter(l.name+"/bias", biasInit.Sample(l.BiasShape(), fanIn, fanOut)))
	}

	l.params = params
	l.initialized = true
	return nil
}

// Output convolves the input with the weight and adds the bias.
//
// Explicit padding is applied as zero padding before a VALID convolution;
// named padding is passed to the backend unchanged.
func (l *Convolution) Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkOutputInputs(inputs); err != nil {
		return nil, err
	}

	input := inputs[0]
	padding := l.Padding()
	if explicit, ok := padding.(conv.Explicit); ok {
		padded, err := b.Pad2D(input, explicit.Rows, explicit.Cols)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %q", l.name)
		}
		input = padded
		padding = conv.Valid{}
	}

	output, err := b.Conv2D(input, l.Weight().Tensor(), l.Stride(), padding)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %q", l.name)
	}

	if bias := l.Bias(); bias != nil {
		output, err = b.AddBias(output, bias.Tensor())
		if err != nil {
			return nil, errors.Wrapf(err, "layer %q", l.name)
		}
	}
	return output, nil
}

// String returns a string representation of the layer.
func (l *Convolution) String() string {
	return fmt.Sprintf("Convolution(name=%s, size=%v, padding=%v, stride=%v, bias=%v)",
		l.name, l.Size(), l.Padding(), l.Stride(), l.UseBias())
}
