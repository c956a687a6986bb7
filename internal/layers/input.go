package layers

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

var inputProps = []*property.Descriptor{
	{
		Name:     "shape",
		Doc:      "Shape of one sample, without the batch dimension. Unknown dimensions are -1 or null.",
		Rule:     property.IntTuple{Min: 1, AllowUnknown: true},
		Required: true,
	},
}

// Input is a graph entry point declaring the shape of incoming samples.
//
// Example:
//
//	input, err := layers.NewInput(layers.Props{"shape": []int{28, 28, 3}})
type Input struct {
	*base
}

// NewInput creates an input layer.
func NewInput(props Props) (*Input, error) {
	l := &Input{}
	b, err := newBase("input", inputProps, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Shape returns the declared sample shape.
func (l *Input) Shape() tensor.Shape {
	return tensor.Shape(l.props.Get("shape").([]int)).Clone()
}

// Resolve returns the declared shape. An externally supplied shape must
// agree with every known declared dimension and fills the unknown ones.
func (l *Input) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	declared := l.Shape()
	switch len(inputs) {
	case 0:
		return declared, nil
	case 1:
		if inputs[0] == nil {
			return declared, nil
		}
		merged, err := declared.Merge(inputs[0])
		if err != nil {
			return nil, &ConnectionError{
				Layer:  l.name,
				Inputs: inputs,
				Reason: fmt.Sprintf("supplied shape does not match declared input shape %v", declared),
			}
		}
		return merged, nil
	default:
		return nil, &ConnectionError{Layer: l.name, Inputs: inputs, Reason: "input layer accepts at most one supplied shape"}
	}
}

// Connect stores an optional externally supplied shape.
func (l *Input) Connect(inputs []tensor.Shape) error {
	if _, err := l.Resolve(inputs); err != nil {
		return err
	}
	l.inputs = nil
	if len(inputs) == 1 && inputs[0] != nil {
		l.inputs = []tensor.Shape{inputs[0].Clone()}
	}
	l.connected = true
	return nil
}

// Initialize checks that the resolved shape is fully known.
func (l *Input) Initialize() error {
	if !l.connected {
		if err := l.Connect(nil); err != nil {
			return err
		}
	}
	return l.base.Initialize()
}

// OutputShape returns the resolved sample shape. Unlike other layers it
// is available before the input is connected.
func (l *Input) OutputShape() tensor.Shape {
	out, err := l.Resolve(l.inputs)
	if err != nil {
		return nil
	}
	return out
}

// Output checks the batch against the resolved shape and passes it on.
func (l *Input) Output(_ Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, &ConnectionError{Layer: l.name, Reason: fmt.Sprintf("expected 1 input tensor, got %d", len(inputs))}
	}
	expected := l.OutputShape()
	got := inputs[0].Shape()
	if len(got) != len(expected)+1 || !expected.Compatible(got[1:]) {
		return nil, &ConnectionError{
			Layer:  l.name,
			Reason: fmt.Sprintf("input tensor has shape %v, expected (batch, %v)", got, expected),
		}
	}
	return inputs[0], nil
}
