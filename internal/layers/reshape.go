package layers

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

// targetShape is an IntTuple that allows at most one inferred (-1)
// dimension.
type targetShape struct {
	property.IntTuple
}

// Validate implements property.Rule.
func (r targetShape) Validate(value any) error {
	if err := r.IntTuple.Validate(value); err != nil {
		return err
	}
	inferred := 0
	for _, dim := range value.([]int) {
		if dim == tensor.Unknown {
			inferred++
		}
	}
	if inferred > 1 {
		return fmt.Errorf("at most one dimension can be inferred, got %d", inferred)
	}
	return nil
}

var reshapeProps = []*property.Descriptor{
	{
		Name:     "shape",
		Doc:      "Target sample shape; one dimension may be -1 to infer it.",
		Rule:     targetShape{property.IntTuple{Min: 1, AllowUnknown: true}},
		Required: true,
	},
}

// Reshape changes the sample shape while keeping the number of elements.
//
// Example:
//
//	// Treat a (30, 10) sequence as a (30, 1, 10) image for a 1D convolution.
//	reshape, err := layers.NewReshape(layers.Props{"shape": []int{30, 1, 10}})
type Reshape struct {
	*base
}

// NewReshape creates a reshape layer.
func NewReshape(props Props) (*Reshape, error) {
	l := &Reshape{}
	b, err := newBase("reshape", reshapeProps, props, l)
	if err != nil {
		return nil, err
	}
	l.base = b
	return l, nil
}

// Target returns the configured target shape, possibly with one Unknown.
func (l *Reshape) Target() tensor.Shape {
	return tensor.Shape(l.props.Get("shape").([]int)).Clone()
}

// Resolve infers the target shape from the number of input elements.
func (l *Reshape) Resolve(inputs []tensor.Shape) (tensor.Shape, error) {
	in, err := l.singleInput(inputs)
	if err != nil {
		return nil, err
	}

	out := l.Target()
	total := in.NumElements()
	if total == tensor.Unknown {
		// Nothing to infer or check until the input is fully known.
		return out, nil
	}

	known, inferred := 1, -1
	for i, dim := range out {
		if dim == tensor.Unknown {
			inferred = i
			continue
		}
		known *= dim
	}

	switch {
	case inferred >= 0 && total%known == 0:
		out[inferred] = total / known
	case inferred < 0 && total == known:
	default:
		return nil, &ConnectionError{
			Layer:  l.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("cannot reshape %d elements into %v", total, l.Target()),
		}
	}
	return out, nil
}

// Output reshapes the input, keeping the batch dimension.
func (l *Reshape) Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkOutputInputs(inputs); err != nil {
		return nil, err
	}
	batch := inputs[0].Shape()[0]
	out, err := b.Reshape(inputs[0], l.OutputShape().WithBatch(batch))
	if err != nil {
		return nil, errors.Wrapf(err, "layer %q", l.name)
	}
	return out, nil
}
