package cpu

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/parallel"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Conv2D performs 2D convolution of an NHWC input with a
// [K_h, K_w, C_in, C_out] kernel.
//
// Only the named padding modes are handled here; explicit zero padding is
// applied by the caller through Pad2D before convolving with Valid.
//
// Algorithm: im2col per output position
//  1. Gather the receptive field into a [K_h * K_w * C_in] patch
//  2. Dot the patch with each transposed filter
//
// Output rows are independent and computed in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.Tensor, stride conv.Stride, padding conv.Padding) (*tensor.Tensor, error) {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		return nil, fmt.Errorf("conv2d: input must be 4D [N,H,W,C], got %dD", len(inputShape))
	}
	if len(kernelShape) != 4 {
		return nil, fmt.Errorf("conv2d: kernel must be 4D [K_h,K_w,C_in,C_out], got %dD", len(kernelShape))
	}

	N, H, W, CIn := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	KH, KW, CInK, COut := kernelShape[0], kernelShape[1], kernelShape[2], kernelShape[3]

	if CIn != CInK {
		return nil, fmt.Errorf("conv2d: input channels %d != kernel channels %d", CIn, CInK)
	}

	HOut, padTop, err := window(H, KH, stride.Rows, padding)
	if err != nil {
		return nil, errors.Wrap(err, "conv2d: rows")
	}
	WOut, padLeft, err := window(W, KW, stride.Cols, padding)
	if err != nil {
		return nil, errors.Wrap(err, "conv2d: cols")
	}

	// Transpose the kernel into one contiguous row per output channel so
	// each output value is a single dot product.
	patchLen := KH * KW * CIn
	kernelData := kernel.Data()
	filters := make([][]float64, COut)
	for f := range filters {
		row := make([]float64, patchLen)
		for k := 0; k < patchLen; k++ {
			row[k] = kernelData[k*COut+f]
		}
		filters[f] = row
	}

	output := tensor.Zeros(tensor.Shape{N, HOut, WOut, COut})
	inData, outData := input.Data(), output.Data()

	parallel.ForGrid(N, HOut, func(n, oh int) {
		patch := make([]float64, patchLen)
		for ow := 0; ow < WOut; ow++ {
			im2col(patch, inData, n, oh*stride.Rows-padTop, ow*stride.Cols-padLeft, H, W, CIn, KH, KW)

			base := ((n*HOut+oh)*WOut + ow) * COut
			for f, filter := range filters {
				outData[base+f] = floats.Dot(filter, patch)
			}
		}
	}, cpu.cfg)

	return output, nil
}

// im2col copies the KH x KW receptive field anchored at (top, left) of
// image n into patch, writing zeros for positions outside the image.
func im2col(patch, inData []float64, n, top, left, H, W, C, KH, KW int) {
	for kh := 0; kh < KH; kh++ {
		ih := top + kh
		for kw := 0; kw < KW; kw++ {
			iw := left + kw
			dst := patch[(kh*KW+kw)*C : (kh*KW+kw+1)*C]
			if ih < 0 || ih >= H || iw < 0 || iw >= W {
				for c := range dst {
					dst[c] = 0
				}
				continue
			}
			src := ((n*H+ih)*W + iw) * C
			copy(dst, inData[src:src+C])
		}
	}
}
