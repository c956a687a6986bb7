package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/tensor"
)

func TestAddBias(t *testing.T) {
	backend := New()
	x := tensor.Ones(tensor.Shape{2, 1, 1, 2})
	bias, err := tensor.FromSlice([]float64{10, 20}, tensor.Shape{2})
	require.NoError(t, err)

	output, err := backend.AddBias(x, bias)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 21, 11, 21}, output.Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, x.Data(), "input must not be modified")

	_, err = backend.AddBias(x, tensor.Ones(tensor.Shape{3}))
	require.Error(t, err)
	_, err = backend.AddBias(x, tensor.Ones(tensor.Shape{1, 2}))
	require.Error(t, err)
}

func TestReLU(t *testing.T) {
	backend := New()
	x, err := tensor.FromSlice([]float64{-2, -0.5, 0, 3}, tensor.Shape{4})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 3}, backend.ReLU(x).Data())
	assert.Equal(t, -2.0, x.At(0))
}

func TestConcat(t *testing.T) {
	backend := New()
	a, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 1, 2})
	b, _ := tensor.FromSlice([]float64{5, 6}, tensor.Shape{2, 1, 1})

	output, err := backend.Concat([]*tensor.Tensor{a, b}, -1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 3}, output.Shape())
	assert.Equal(t, []float64{1, 2, 5, 3, 4, 6}, output.Data())

	output, err = backend.Concat([]*tensor.Tensor{b, b}, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 1, 1}, output.Shape())

	_, err = backend.Concat([]*tensor.Tensor{a, b}, 0)
	require.Error(t, err)
	_, err = backend.Concat(nil, 0)
	require.Error(t, err)
	_, err = backend.Concat([]*tensor.Tensor{a}, 3)
	require.Error(t, err)
}

func TestReshape(t *testing.T) {
	backend := New()
	x := tensor.Ones(tensor.Shape{2, 3, 4})

	y, err := backend.Reshape(x, tensor.Shape{2, 12})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 12}, y.Shape())
}

func TestMaxPool2D(t *testing.T) {
	backend := New()
	input, err := tensor.FromSlice([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 4, 4, 1})
	require.NoError(t, err)

	output, err := backend.MaxPool2D(input, [2]int{2, 2}, conv.Stride{Rows: 2, Cols: 2}, conv.Valid{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, output.Shape())
	assert.Equal(t, []float64{6, 8, 14, 16}, output.Data())

	output, err = backend.MaxPool2D(input, [2]int{3, 3}, conv.Stride{Rows: 2, Cols: 2}, conv.Same{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, output.Shape())
	assert.Equal(t, []float64{11, 12, 15, 16}, output.Data())

	_, err = backend.MaxPool2D(input, [2]int{2, 2}, conv.Stride{Rows: 2, Cols: 2}, conv.Explicit{})
	require.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "CPU", New().Name())
}
