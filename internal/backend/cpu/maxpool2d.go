package cpu

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/parallel"
	"github.com/born-ml/layergraph/internal/tensor"
)

// MaxPool2D takes the maximum over each [size[0], size[1]] window of an
// NHWC input, per channel. With Same padding, window positions outside
// the input are ignored.
func (cpu *CPUBackend) MaxPool2D(input *tensor.Tensor, size [2]int, stride conv.Stride, padding conv.Padding) (*tensor.Tensor, error) {
	shape := input.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("maxpool2d: input must be 4D [N,H,W,C], got %dD", len(shape))
	}

	N, H, W, C := shape[0], shape[1], shape[2], shape[3]
	HOut, padTop, err := window(H, size[0], stride.Rows, padding)
	if err != nil {
		return nil, errors.Wrap(err, "maxpool2d: rows")
	}
	WOut, padLeft, err := window(W, size[1], stride.Cols, padding)
	if err != nil {
		return nil, errors.Wrap(err, "maxpool2d: cols")
	}

	output := tensor.Zeros(tensor.Shape{N, HOut, WOut, C})
	inData, outData := input.Data(), output.Data()

	parallel.ForGrid(N, HOut, func(n, oh int) {
		top := oh*stride.Rows - padTop
		for ow := 0; ow < WOut; ow++ {
			left := ow*stride.Cols - padLeft
			base := ((n*HOut+oh)*WOut + ow) * C
			for c := 0; c < C; c++ {
				best := math.Inf(-1)
				for ih := max(top, 0); ih < min(top+size[0], H); ih++ {
					for iw := max(left, 0); iw < min(left+size[1], W); iw++ {
						best = math.Max(best, inData[((n*H+ih)*W+iw)*C+c])
					}
				}
				outData[base+c] = best
			}
		}
	}, cpu.cfg)

	return output, nil
}
