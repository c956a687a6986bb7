package layers

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/born-ml/layergraph/internal/tensor"
)

// Initializer produces the initial values of a parameter tensor.
type Initializer interface {
	// Sample returns a new tensor of the given shape. fanIn and fanOut
	// are the number of input and output units feeding the parameter.
	Sample(shape tensor.Shape, fanIn, fanOut int) *tensor.Tensor

	fmt.Stringer
}

// Constant fills parameters with a single value.
type Constant float64

// Sample implements Initializer.
func (c Constant) Sample(shape tensor.Shape, _, _ int) *tensor.Tensor {
	return tensor.Full(shape, float64(c))
}

func (c Constant) String() string { return fmt.Sprintf("constant(%g)", float64(c)) }

// XavierUniform (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
type XavierUniform struct{}

// Sample implements Initializer.
func (XavierUniform) Sample(shape tensor.Shape, fanIn, fanOut int) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = (rand.Float64()*2.0 - 1.0) * bound
	}
	return t
}

func (XavierUniform) String() string { return "xavier_uniform" }

// HeNormal draws from N(0, 2/fan_in), suited to ReLU networks.
type HeNormal struct{}

// Sample implements Initializer.
func (HeNormal) Sample(shape tensor.Shape, fanIn, _ int) *tensor.Tensor {
	std := math.Sqrt(2.0 / float64(fanIn))

	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = rand.NormFloat64() * std
	}
	return t
}

func (HeNormal) String() string { return "he_normal" }

var namedInitializers = map[string]Initializer{
	"zeros":          Constant(0),
	"ones":           Constant(1),
	"xavier_uniform": XavierUniform{},
	"he_normal":      HeNormal{},
}

// initializerRule accepts an Initializer, a number (constant value) or the
// name of a built-in initializer.
type initializerRule struct{}

// Coerce implements property.Rule.
func (initializerRule) Coerce(raw any) (any, error) {
	switch v := raw.(type) {
	case Initializer:
		return v, nil
	case float64:
		return Constant(v), nil
	case float32:
		return Constant(v), nil
	case int:
		return Constant(v), nil
	case int64:
		return Constant(v), nil
	case int32:
		return Constant(v), nil
	case string:
		if init, ok := namedInitializers[strings.ToLower(v)]; ok {
			return init, nil
		}
		return nil, fmt.Errorf("unknown initializer %q, available: zeros, ones, xavier_uniform, he_normal", v)
	}
	return nil, fmt.Errorf("expected a number, an initializer name or an Initializer, got %T", raw)
}

// Validate implements property.Rule.
func (initializerRule) Validate(value any) error {
	c, ok := value.(Constant)
	if ok && (math.IsNaN(float64(c)) || math.IsInf(float64(c), 0)) {
		return fmt.Errorf("constant initializer must be finite, got %v", float64(c))
	}
	if _, ok := value.(Initializer); !ok {
		return fmt.Errorf("expected an Initializer, got %T", value)
	}
	return nil
}

// Describe implements property.Rule.
func (initializerRule) Describe() string {
	return "number, zeros, ones, xavier_uniform, he_normal or an Initializer"
}
