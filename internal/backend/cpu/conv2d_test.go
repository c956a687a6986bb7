package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/parallel"
	"github.com/born-ml/layergraph/internal/tensor"
)

func TestConv2D_KnownValues(t *testing.T) {
	backend := NewWithConfig(parallel.Sequential())

	// Input: [1, 3, 3, 1] with values 1-9
	input, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 3, 3, 1})
	require.NoError(t, err)

	// Kernel: [2, 2, 1, 1] = [[1, 2], [3, 4]]
	kernel, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2, 1, 1})
	require.NoError(t, err)

	output, err := backend.Conv2D(input, kernel, conv.Stride{Rows: 1, Cols: 1}, conv.Valid{})
	require.NoError(t, err)

	// [0,0]: 1*1 + 2*2 + 3*4 + 4*5 = 37
	// [0,1]: 1*2 + 2*3 + 3*5 + 4*6 = 47
	// [1,0]: 1*4 + 2*5 + 3*7 + 4*8 = 67
	// [1,1]: 1*5 + 2*6 + 3*8 + 4*9 = 77
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, output.Shape())
	assert.Equal(t, []float64{37, 47, 67, 77}, output.Data())
}

func TestConv2D_MultipleChannels(t *testing.T) {
	backend := New()

	// Two input channels, two filters: filter 0 sums channel 0,
	// filter 1 sums channel 1 scaled by 10.
	input := tensor.Zeros(tensor.Shape{2, 2, 2, 2})
	data := input.Data()
	for i := range data {
		if i%2 == 0 {
			data[i] = 1
		} else {
			data[i] = 2
		}
	}

	kernel := tensor.Zeros(tensor.Shape{2, 2, 2, 2})
	for kh := 0; kh < 2; kh++ {
		for kw := 0; kw < 2; kw++ {
			kernel.Set(1, kh, kw, 0, 0)
			kernel.Set(10, kh, kw, 1, 1)
		}
	}

	output, err := backend.Conv2D(input, kernel, conv.Stride{Rows: 1, Cols: 1}, conv.Valid{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 1, 2}, output.Shape())
	assert.Equal(t, []float64{4, 80, 4, 80}, output.Data())
}

func TestConv2D_Shapes(t *testing.T) {
	backend := New()
	input := tensor.Ones(tensor.Shape{3, 12, 11, 2})
	kernel := tensor.Ones(tensor.Shape{3, 4, 2, 5})

	tests := []struct {
		stride   conv.Stride
		padding  conv.Padding
		expected tensor.Shape
	}{
		{conv.Stride{Rows: 1, Cols: 1}, conv.Valid{}, tensor.Shape{3, 10, 8, 5}},
		{conv.Stride{Rows: 1, Cols: 1}, conv.Same{}, tensor.Shape{3, 12, 11, 5}},
		{conv.Stride{Rows: 2, Cols: 1}, conv.Valid{}, tensor.Shape{3, 5, 8, 5}},
		{conv.Stride{Rows: 2, Cols: 1}, conv.Same{}, tensor.Shape{3, 6, 11, 5}},
		{conv.Stride{Rows: 2, Cols: 2}, conv.Valid{}, tensor.Shape{3, 5, 4, 5}},
		{conv.Stride{Rows: 2, Cols: 2}, conv.Same{}, tensor.Shape{3, 6, 6, 5}},
	}

	for _, tt := range tests {
		output, err := backend.Conv2D(input, kernel, tt.stride, tt.padding)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, output.Shape(), "stride=%v padding=%v", tt.stride, tt.padding)
	}
}

func TestConv2D_SamePaddingBorders(t *testing.T) {
	backend := New()
	input := tensor.Ones(tensor.Shape{1, 3, 3, 1})
	kernel := tensor.Ones(tensor.Shape{3, 3, 1, 1})

	output, err := backend.Conv2D(input, kernel, conv.Stride{Rows: 1, Cols: 1}, conv.Same{})
	require.NoError(t, err)
	assert.Equal(t, []float64{
		4, 6, 4,
		6, 9, 6,
		4, 6, 4,
	}, output.Data())
}

func TestConv2D_Errors(t *testing.T) {
	backend := New()
	unit := conv.Stride{Rows: 1, Cols: 1}

	_, err := backend.Conv2D(tensor.Ones(tensor.Shape{5, 5, 1}), tensor.Ones(tensor.Shape{3, 3, 1, 1}), unit, conv.Valid{})
	require.Error(t, err)

	_, err = backend.Conv2D(tensor.Ones(tensor.Shape{1, 5, 5, 2}), tensor.Ones(tensor.Shape{3, 3, 1, 1}), unit, conv.Valid{})
	require.Error(t, err)

	_, err = backend.Conv2D(tensor.Ones(tensor.Shape{1, 5, 5, 1}), tensor.Ones(tensor.Shape{3, 3, 1, 1}), unit, conv.Explicit{Rows: 1, Cols: 1})
	require.Error(t, err)

	_, err = backend.Conv2D(tensor.Ones(tensor.Shape{1, 2, 2, 1}), tensor.Ones(tensor.Shape{3, 3, 1, 1}), unit, conv.Valid{})
	require.ErrorIs(t, err, conv.ErrArithmetic)
}

func TestPad2D(t *testing.T) {
	backend := New()
	input := tensor.Ones(tensor.Shape{1, 2, 2, 1})

	output, err := backend.Pad2D(input, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 2, 1}, output.Shape())
	assert.Equal(t, []float64{0, 0, 1, 1, 1, 1, 0, 0}, output.Data())

	same, err := backend.Pad2D(input, 0, 0)
	require.NoError(t, err)
	assert.Same(t, input, same)

	_, err = backend.Pad2D(input, -1, 0)
	require.Error(t, err)
}
