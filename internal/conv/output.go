package conv

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// OutputDim computes the size of one spatial dimension after a sliding
// window of filterSize is applied with the given padding and stride.
//
//	Valid:        ceil((size - filter + 1) / stride)
//	Same:         ceil(size / stride)
//	Symmetric(p): ceil((size + 2p - filter + 1) / stride)
//
// An unknown size yields tensor.Unknown without error. Explicit padding
// covers two axes and must be split with Axis first.
//
// Example:
//
//	conv.OutputDim(10, 5, conv.Symmetric(3), 5) // 3
//	conv.OutputDim(5, 5, conv.Valid{}, 1)       // 1
func OutputDim(size, filterSize int, padding Padding, stride int) (int, error) {
	if size == tensor.Unknown {
		return tensor.Unknown, nil
	}
	if size <= 0 {
		return 0, &ArithmeticError{Arg: "size", Value: size, Reason: "dimension size must be positive or unknown"}
	}
	if filterSize <= 0 {
		return 0, &ArithmeticError{Arg: "filter_size", Value: filterSize, Reason: "filter size must be a positive integer"}
	}
	if stride <= 0 {
		return 0, &ArithmeticError{Arg: "stride", Value: stride, Reason: "stride must be a positive integer"}
	}

	var span int
	switch p := padding.(type) {
	case Valid:
		span = size - filterSize + 1
	case Same:
		span = size
	case Symmetric:
		if p < 0 {
			return 0, &ArithmeticError{Arg: "padding", Value: int(p), Reason: "padding must be greater or equal to zero"}
		}
		span = size + 2*int(p) - filterSize + 1
	default:
		return 0, unknownPadding(padding)
	}

	if span <= 0 {
		return 0, &ArithmeticError{
			Arg:    "filter_size",
			Value:  filterSize,
			Reason: fmt.Sprintf("filter does not fit into the padded input of size %d", size),
		}
	}
	return ceilDiv(span, stride), nil
}

// ceilDiv divides two positive integers rounding up.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
