// Package cpu implements a pure Go reference backend for layer outputs.
//
// Tensors use the NHWC layout: [batch, rows, cols, channels]. Convolution
// kernels use [filter_rows, filter_cols, in_channels, out_channels].
package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/parallel"
	"github.com/born-ml/layergraph/internal/tensor"
)

// CPUBackend computes layer outputs on the CPU.
type CPUBackend struct {
	cfg parallel.Config
}

// New creates a CPU backend that parallelizes across all CPUs.
func New() *CPUBackend {
	return &CPUBackend{cfg: parallel.DefaultConfig()}
}

// NewWithConfig creates a CPU backend with an explicit parallel config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{cfg: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Pad2D zero-pads the row and column axes of an NHWC tensor symmetrically.
func (cpu *CPUBackend) Pad2D(input *tensor.Tensor, rows, cols int) (*tensor.Tensor, error) {
	shape := input.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("pad2d: input must be 4D [N,H,W,C], got %dD", len(shape))
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("pad2d: padding must be non-negative, got (%d, %d)", rows, cols)
	}
	if rows == 0 && cols == 0 {
		return input, nil
	}

	N, H, W, C := shape[0], shape[1], shape[2], shape[3]
	HOut, WOut := H+2*rows, W+2*cols
	output := tensor.Zeros(tensor.Shape{N, HOut, WOut, C})

	inData, outData := input.Data(), output.Data()
	for n := 0; n < N; n++ {
		for h := 0; h < H; h++ {
			src := ((n*H + h) * W) * C
			dst := ((n*HOut+h+rows)*WOut + cols) * C
			copy(outData[dst:dst+W*C], inData[src:src+W*C])
		}
	}
	return output, nil
}

// AddBias broadcast-adds a [channels] bias over every batch and spatial
// position of a tensor whose last dimension is channels.
func (cpu *CPUBackend) AddBias(x, bias *tensor.Tensor) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(bias.Shape()) != 1 {
		return nil, fmt.Errorf("add_bias: bias must be 1D, got shape %v", bias.Shape())
	}
	channels := bias.Shape()[0]
	if len(shape) == 0 || shape[len(shape)-1] != channels {
		return nil, fmt.Errorf("add_bias: bias %v does not match last dimension of %v", bias.Shape(), shape)
	}

	output := x.Clone()
	data, b := output.Data(), bias.Data()
	for start := 0; start < len(data); start += channels {
		floats.Add(data[start:start+channels], b)
	}
	return output, nil
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.Tensor) *tensor.Tensor {
	output := x.Clone()
	data := output.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return output
}

// Reshape returns x viewed with a new shape.
func (cpu *CPUBackend) Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	return x.Reshape(shape)
}

// Concat concatenates tensors along axis. Negative axes count from the end.
func (cpu *CPUBackend) Concat(xs []*tensor.Tensor, axis int) (*tensor.Tensor, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("concat: no tensors given")
	}

	first := xs[0].Shape()
	rank := len(first)
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, fmt.Errorf("concat: axis %d out of range for rank %d", axis, rank)
	}

	outShape := first.Clone()
	outShape[axis] = 0
	for _, x := range xs {
		shape := x.Shape()
		if len(shape) != rank {
			return nil, fmt.Errorf("concat: rank mismatch %v vs %v", first, shape)
		}
		for d := range shape {
			if d != axis && shape[d] != first[d] {
				return nil, fmt.Errorf("concat: shape mismatch %v vs %v at dimension %d", first, shape, d)
			}
		}
		outShape[axis] += shape[axis]
	}

	outer := 1
	for _, dim := range first[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range first[axis+1:] {
		inner *= dim
	}

	output := tensor.Zeros(outShape)
	outData := output.Data()
	offset := 0
	for o := 0; o < outer; o++ {
		for _, x := range xs {
			chunk := x.Shape()[axis] * inner
			copy(outData[offset:offset+chunk], x.Data()[o*chunk:(o+1)*chunk])
			offset += chunk
		}
	}
	return output, nil
}

// window computes the output size and the leading padding of one spatial
// axis for a named padding mode.
func window(size, filter, stride int, padding conv.Padding) (out, before int, err error) {
	switch padding.(type) {
	case conv.Valid:
		out, err = conv.OutputDim(size, filter, padding, stride)
		return out, 0, err
	case conv.Same:
		out, err = conv.OutputDim(size, filter, padding, stride)
		if err != nil {
			return 0, 0, err
		}
		total := max((out-1)*stride+filter-size, 0)
		return out, total / 2, nil
	default:
		return 0, 0, fmt.Errorf("padding %v must be applied with Pad2D before the kernel runs", padding)
	}
}
