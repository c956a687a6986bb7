package tensor

import "fmt"

// Tensor is a dense, row-major float64 tensor.
//
// Tensors are the values exchanged between layers and a numeric backend.
// Unlike a layer Shape, a tensor shape is always fully known and includes
// the batch dimension.
//
// Example:
//
//	x := tensor.Ones(tensor.Shape{1, 5, 5, 1}) // NHWC batch of one 5x5 image
//	v := x.At(0, 2, 2, 0)
type Tensor struct {
	shape   Shape
	strides []int
	data    []float64
}

// New creates a tensor that takes ownership of data.
func New(shape Shape, data []float64) (*Tensor, error) {
	if err := validateConcrete(shape); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
		data:    data,
	}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	buf := make([]float64, len(data))
	copy(buf, data)
	return New(shape, buf)
}

// Zeros creates a tensor filled with zeros.
// Panics if the shape has an unknown or non-positive dimension.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape, make([]float64, max(shape.NumElements(), 0)))
	if err != nil {
		panic(err)
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

func validateConcrete(shape Shape) error {
	for i, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (tensors need concrete sizes)", i, dim)
		}
	}
	return nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage.
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Strides returns the row-major strides of the tensor.
func (t *Tensor) Strides() []int {
	return t.strides
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.strides[i]
	}
	return offset
}

// Reshape returns a tensor sharing this tensor's data with a new shape.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := validateConcrete(shape); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) into %v", t.shape, len(t.data), shape)
	}
	return &Tensor{shape: shape.Clone(), strides: shape.ComputeStrides(), data: t.data}, nil
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), strides: t.shape.ComputeStrides(), data: data}
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[float64]%v", t.shape)
}
