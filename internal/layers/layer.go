// Package layers implements configurable computation nodes with shape
// inference.
//
// Every layer follows a two-phase protocol:
//   - declare: a layer is built from typed, validated properties only
//   - resolve: Resolve(inputs) derives the output shape as a pure function
//     of the input shapes and the properties
//
// Connect stores the input shapes once they are known, after which
// OutputShape, parameter shapes and Initialize become available. Numeric
// work is delegated to a Backend.
//
// Example:
//
//	input, _ := layers.NewInput(layers.Props{"shape": []int{28, 28, 3}})
//	conv, _ := layers.NewConvolution(layers.Props{"size": []int{3, 3, 16}, "padding": "same"})
//
//	out, err := conv.Resolve([]tensor.Shape{input.OutputShape()}) // (28, 28, 16)
package layers

import (
	"fmt"
	"sync"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Props holds raw property values keyed by property name.
// The "name" key sets the layer name.
type Props map[string]any

// Topology declares how a layer kind may be wired into a graph.
type Topology struct {
	Source bool // Accepts no predecessors (graph entry only)
	FanIn  bool // Accepts more than one predecessor
	FanOut bool // Accepts more than one successor
}

// Backend is the numeric collaborator that computes layer outputs.
// Tensors are NHWC and carry a leading batch dimension.
type Backend interface {
	Conv2D(input, kernel *tensor.Tensor, stride conv.Stride, padding conv.Padding) (*tensor.Tensor, error)
	Pad2D(input *tensor.Tensor, rows, cols int) (*tensor.Tensor, error)
	AddBias(x, bias *tensor.Tensor) (*tensor.Tensor, error)
	ReLU(x *tensor.Tensor) *tensor.Tensor
	MaxPool2D(input *tensor.Tensor, size [2]int, stride conv.Stride, padding conv.Padding) (*tensor.Tensor, error)
	Concat(xs []*tensor.Tensor, axis int) (*tensor.Tensor, error)
	Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error)
}

// Layer is a configured computation node.
type Layer interface {
	// Name identifies the layer, unique within a graph.
	Name() string

	// Kind is the registry name of the layer type (e.g. "convolution").
	Kind() string

	// Topology declares the fan-in and fan-out the kind supports.
	Topology() Topology

	// Properties returns the instance's property values.
	Properties() *property.Set

	// Set assigns a property. The value is coerced and validated on
	// every call; materialized parameters are discarded. Layers held by a
	// graph are changed through Graph.Set so successors see the new shape.
	Set(name string, raw any) error

	// Resolve validates input shapes and returns the output shape without
	// modifying the layer.
	Resolve(inputs []tensor.Shape) (tensor.Shape, error)

	// Connect resolves and stores the input shapes.
	Connect(inputs []tensor.Shape) error

	// Connected reports whether input shapes have been stored.
	Connected() bool

	// Disconnect clears the stored input shapes and any materialized
	// parameters.
	Disconnect()

	// InputShapes returns the stored input shapes, nil until connected.
	InputShapes() []tensor.Shape

	// InputShape returns the single stored input shape, nil until
	// connected or for layers with several inputs.
	InputShape() tensor.Shape

	// OutputShape derives the output shape from the stored inputs. It is
	// nil while the layer is not connected.
	OutputShape() tensor.Shape

	// Initialize materializes parameters. All shapes must be fully known.
	Initialize() error

	// Initialized reports whether Initialize succeeded since the last
	// property change.
	Initialized() bool

	// Parameters returns the materialized parameters.
	Parameters() []*Parameter

	// Output computes the layer output through the backend.
	Output(b Backend, inputs ...*tensor.Tensor) (*tensor.Tensor, error)

	// Owner returns the id of the graph holding the layer, or "".
	Owner() string

	// Attach records the owning graph. The graph checks ownership before
	// attaching.
	Attach(graphID string)
}

// resolver is implemented by every concrete layer.
type resolver interface {
	Resolve(inputs []tensor.Shape) (tensor.Shape, error)
}

// base carries the state shared by all layer kinds.
type base struct {
	name     string
	kind     string
	topology Topology
	props    *property.Set
	self     resolver

	inputs      []tensor.Shape
	connected   bool
	params      []*Parameter
	initialized bool
	owner       string
}

var (
	namesMu sync.Mutex
	names   = map[string]int{}
)

// generateName returns "<kind>-<n>" with n counting per kind from 1.
func generateName(kind string) string {
	namesMu.Lock()
	defer namesMu.Unlock()
	names[kind]++
	return fmt.Sprintf("%s-%d", kind, names[kind])
}

// newBase builds the shared state and applies raw properties.
func newBase(kind string, defs []*property.Descriptor, props Props, self resolver) (*base, error) {
	raw := make(map[string]any, len(props))
	name := ""
	for k, v := range props {
		if k != "name" {
			raw[k] = v
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, &property.InvalidValueError{Owner: kind, Property: "name", Value: v, Constraint: "name must be a non-empty string"}
		}
		name = s
	}
	if name == "" {
		name = generateName(kind)
	}

	b := &base{
		name:     name,
		kind:     kind,
		topology: topologies[kind],
		props:    property.NewSet(name, defs),
		self:     self,
	}
	if err := b.props.Apply(raw); err != nil {
		return nil, err
	}
	return b, nil
}

// Name returns the layer name.
func (b *base) Name() string { return b.name }

// Kind returns the layer kind.
func (b *base) Kind() string { return b.kind }

// Topology returns the wiring capabilities of the kind.
func (b *base) Topology() Topology { return b.topology }

// Properties returns the property values.
func (b *base) Properties() *property.Set { return b.props }

// Set assigns a property and discards materialized parameters.
func (b *base) Set(name string, raw any) error {
	if err := b.props.Set(name, raw); err != nil {
		return err
	}
	b.params = nil
	b.initialized = false
	return nil
}

// Connect resolves and stores input shapes. Shapes already stored may
// only be refined (unknown dimensions filled), never contradicted.
func (b *base) Connect(inputs []tensor.Shape) error {
	if b.connected && !refines(b.inputs, inputs) {
		return &ConnectionError{
			Layer:  b.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("layer is already connected with input shapes %v", b.inputs),
		}
	}
	if _, err := b.self.Resolve(inputs); err != nil {
		return err
	}

	stored := make([]tensor.Shape, len(inputs))
	for i, s := range inputs {
		stored[i] = s.Clone()
	}
	b.inputs = stored
	b.connected = true
	return nil
}

// refines reports whether next is compatible with prev, input by input.
func refines(prev, next []tensor.Shape) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !prev[i].Compatible(next[i]) {
			return false
		}
	}
	return true
}

// Connected reports whether inputs are stored.
func (b *base) Connected() bool { return b.connected }

// Disconnect forgets the stored inputs and parameters.
func (b *base) Disconnect() {
	b.inputs = nil
	b.connected = false
	b.params = nil
	b.initialized = false
}

// InputShapes returns the stored input shapes.
func (b *base) InputShapes() []tensor.Shape { return b.inputs }

// InputShape returns the single stored input shape.
func (b *base) InputShape() tensor.Shape {
	if len(b.inputs) != 1 {
		return nil
	}
	return b.inputs[0]
}

// OutputShape derives the output shape from the stored inputs.
func (b *base) OutputShape() tensor.Shape {
	if !b.connected {
		return nil
	}
	out, err := b.self.Resolve(b.inputs)
	if err != nil {
		return nil
	}
	return out
}

// requireKnown checks that the layer is connected and every shape it
// depends on is fully resolved.
func (b *base) requireKnown() (tensor.Shape, error) {
	if !b.connected {
		return nil, &ConnectionError{Layer: b.name, Reason: "layer is not connected"}
	}
	for _, in := range b.inputs {
		if !in.IsKnown() {
			return nil, &ConnectionError{Layer: b.name, Inputs: b.inputs, Reason: "input shape has unresolved dimensions"}
		}
	}
	out, err := b.self.Resolve(b.inputs)
	if err != nil {
		return nil, err
	}
	if !out.IsKnown() {
		return nil, &ConnectionError{Layer: b.name, Inputs: b.inputs, Reason: fmt.Sprintf("output shape %v has unresolved dimensions", out)}
	}
	return out, nil
}

// Initialize checks that all shapes are known. Kinds with parameters
// extend it.
func (b *base) Initialize() error {
	if _, err := b.requireKnown(); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

// Initialized reports whether Initialize succeeded.
func (b *base) Initialized() bool { return b.initialized }

// Parameters returns the materialized parameters.
func (b *base) Parameters() []*Parameter { return b.params }

// Owner returns the owning graph id.
func (b *base) Owner() string { return b.owner }

// Attach records the owning graph.
func (b *base) Attach(graphID string) { b.owner = graphID }

// singleInput checks that exactly one input shape was given.
func (b *base) singleInput(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 {
		return nil, &ConnectionError{
			Layer:  b.name,
			Inputs: inputs,
			Reason: fmt.Sprintf("%s layer expects exactly one input, got %d", b.kind, len(inputs)),
		}
	}
	if inputs[0] == nil {
		return nil, &ConnectionError{Layer: b.name, Inputs: inputs, Reason: "input shape is unresolved"}
	}
	return inputs[0], nil
}

// checkOutputInputs validates tensors handed to Output against the stored
// input shapes. Tensors carry an extra leading batch dimension.
func (b *base) checkOutputInputs(inputs []*tensor.Tensor) error {
	if !b.initialized {
		return &ConnectionError{Layer: b.name, Reason: "layer is not initialized"}
	}
	if len(inputs) != len(b.inputs) {
		return &ConnectionError{
			Layer:  b.name,
			Inputs: b.inputs,
			Reason: fmt.Sprintf("expected %d input tensors, got %d", len(b.inputs), len(inputs)),
		}
	}
	for i, x := range inputs {
		got := x.Shape()
		if len(got) != len(b.inputs[i])+1 || !tensor.Shape(got[1:]).Equal(b.inputs[i]) {
			return &ConnectionError{
				Layer:  b.name,
				Inputs: b.inputs,
				Reason: fmt.Sprintf("input tensor %d has shape %v, expected (batch, %v)", i, got, b.inputs[i]),
			}
		}
	}
	return nil
}
