// Package graph connects layers into a directed acyclic graph and
// propagates shapes through it.
//
// Layers are chained with Join. Joining a layer that is already part of the
// graph reuses it, which is how branches and merges are built:
//
//	g := graph.New()
//	_ = g.Join(input, squeeze)
//	_ = g.Join(squeeze, expand1x1, concat)
//	_ = g.Join(squeeze, expand3x3, concat)
//
// Shapes are propagated eagerly after every successful structural change.
// Initialize resolves the remaining shapes, optionally from externally
// supplied entry shapes, and materializes parameters.
package graph

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/layergraph/internal/layers"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Graph is an insertion-ordered DAG of layers.
type Graph struct {
	id          uuid.UUID
	state       *state
	initialized bool
}

// state is the structural part of a graph. Joins are applied to a copy
// and committed only when the result is valid.
type state struct {
	nodes []layers.Layer
	index map[string]int
	preds map[string][]string
	succs map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		id: uuid.New(),
		state: &state{
			index: map[string]int{},
			preds: map[string][]string{},
			succs: map[string][]string{},
		},
	}
}

// ID returns the graph identity recorded as the owner of its layers.
func (g *Graph) ID() string {
	return g.id.String()
}

// Join chains the given layers, adding every layer that is not yet in the
// graph and an edge between each consecutive pair.
//
// On any structural or shape error the graph is left unchanged.
func (g *Graph) Join(chain ...layers.Layer) error {
	if len(chain) == 0 {
		return nil
	}

	next := g.state.clone()
	for _, l := range chain {
		if err := g.add(next, l); err != nil {
			return err
		}
	}
	for i := 1; i < len(chain); i++ {
		if err := next.link(chain[i-1], chain[i]); err != nil {
			return err
		}
	}

	order, acyclic := next.order()
	if !acyclic {
		return &InvalidConnectionError{Reason: "connection creates a cycle", Layers: names(chain)}
	}
	steps, err := next.resolve(order, nil)
	if err != nil {
		return err
	}

	for _, l := range chain {
		l.Attach(g.ID())
	}
	g.state = next
	g.initialized = false
	return apply(steps)
}

// Set assigns a property of the named layer and propagates the resulting
// shapes to its successors.
//
// If any layer no longer accepts its inputs, the previous value is
// restored and the graph is left unchanged.
func (g *Graph) Set(name, prop string, raw any) error {
	l, ok := g.Layer(name)
	if !ok {
		return &InvalidConnectionError{Reason: "unknown layer", Layers: []string{name}}
	}

	props := l.Properties()
	saved := props.Values()
	if err := props.Set(prop, raw); err != nil {
		return err
	}
	steps, err := g.state.resolve(g.Order(), nil)
	if err != nil {
		props.Restore(saved)
		return err
	}

	if err := l.Set(prop, raw); err != nil {
		return err
	}
	g.initialized = false
	return apply(steps)
}

// Connect adds a single edge between two layers.
func (g *Graph) Connect(from, to layers.Layer) error {
	return g.Join(from, to)
}

// add appends l to s unless it is already there.
func (g *Graph) add(s *state, l layers.Layer) error {
	if l == nil {
		return &InvalidConnectionError{Reason: "layer is nil"}
	}
	if owner := l.Owner(); owner != "" && owner != g.ID() {
		return &InvalidConnectionError{
			Reason: "layer already belongs to graph " + owner,
			Layers: []string{l.Name()},
		}
	}
	if i, ok := s.index[l.Name()]; ok {
		if s.nodes[i] != l {
			return &InvalidConnectionError{
				Reason: "another layer with the same name is already in the graph",
				Layers: []string{l.Name()},
			}
		}
		return nil
	}
	s.index[l.Name()] = len(s.nodes)
	s.nodes = append(s.nodes, l)
	return nil
}

func (s *state) clone() *state {
	c := &state{
		nodes: append([]layers.Layer(nil), s.nodes...),
		index: make(map[string]int, len(s.index)),
		preds: make(map[string][]string, len(s.preds)),
		succs: make(map[string][]string, len(s.succs)),
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	for k, v := range s.preds {
		c.preds[k] = append([]string(nil), v...)
	}
	for k, v := range s.succs {
		c.succs[k] = append([]string(nil), v...)
	}
	return c
}

// link adds the edge from -> to after checking the kinds allow it.
func (s *state) link(from, to layers.Layer) error {
	edge := []string{from.Name(), to.Name()}
	switch {
	case from == to:
		return &InvalidConnectionError{Reason: "layer cannot be connected to itself", Layers: edge}
	case contains(s.succs[from.Name()], to.Name()):
		return &InvalidConnectionError{Reason: "layers are already connected", Layers: edge}
	case to.Topology().Source:
		return &InvalidConnectionError{Reason: to.Kind() + " layer accepts no predecessors", Layers: edge}
	case len(s.preds[to.Name()]) > 0 && !to.Topology().FanIn:
		return &InvalidConnectionError{Reason: to.Kind() + " layer accepts a single predecessor", Layers: edge}
	case len(s.succs[from.Name()]) > 0 && !from.Topology().FanOut:
		return &InvalidConnectionError{Reason: from.Kind() + " layer accepts a single successor", Layers: edge}
	}
	s.succs[from.Name()] = append(s.succs[from.Name()], to.Name())
	s.preds[to.Name()] = append(s.preds[to.Name()], from.Name())
	return nil
}

// order returns the layers in topological order. Among layers whose
// predecessors are all placed, the earliest inserted comes first. The
// second result is false if the graph has a cycle.
func (s *state) order() ([]layers.Layer, bool) {
	inDegree := make([]int, len(s.nodes))
	for i, l := range s.nodes {
		inDegree[i] = len(s.preds[l.Name()])
	}

	placed := make([]bool, len(s.nodes))
	order := make([]layers.Layer, 0, len(s.nodes))
	for len(order) < len(s.nodes) {
		next := -1
		for i := range s.nodes {
			if !placed[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return order, false
		}

		placed[next] = true
		order = append(order, s.nodes[next])
		for _, succ := range s.succs[s.nodes[next].Name()] {
			inDegree[s.index[succ]]--
		}
	}
	return order, true
}

// step is a resolved layer input waiting to be stored.
type step struct {
	layer  layers.Layer
	inputs []tensor.Shape
}

// resolve derives input shapes in order without modifying any layer.
// Layers whose inputs are not available yet are skipped.
func (s *state) resolve(order []layers.Layer, entry map[string]tensor.Shape) ([]step, error) {
	steps, _, err := s.walk(order, entry, true)
	return steps, err
}

// walk resolves every layer in order and returns the steps and output
// shapes. Unless strict, a layer that fails to resolve is left without
// an output, together with everything downstream of it.
func (s *state) walk(order []layers.Layer, entry map[string]tensor.Shape, strict bool) ([]step, map[string]tensor.Shape, error) {
	outputs := make(map[string]tensor.Shape, len(order))
	steps := make([]step, 0, len(order))
	for _, l := range order {
		inputs, ok := s.inputShapes(l, outputs, entry)
		if !ok {
			continue
		}

		out, err := l.Resolve(inputs)
		if err != nil && !strict {
			continue
		}
		if err != nil {
			if preds := s.preds[l.Name()]; len(preds) > 1 {
				return nil, nil, &InvalidConnectionError{
					Reason: "predecessor shapes are inconsistent",
					Layers: append(append([]string(nil), preds...), l.Name()),
					Cause:  err,
				}
			}
			return nil, nil, errors.Wrapf(err, "resolve %q", l.Name())
		}
		outputs[l.Name()] = out
		steps = append(steps, step{layer: l, inputs: inputs})
	}
	return steps, outputs, nil
}

// inputShapes collects the input shapes of l from its predecessors, or
// from the entry shapes for layers without predecessors.
func (s *state) inputShapes(l layers.Layer, outputs, entry map[string]tensor.Shape) ([]tensor.Shape, bool) {
	preds := s.preds[l.Name()]
	if len(preds) == 0 {
		if shape, ok := entry[l.Name()]; ok {
			return []tensor.Shape{shape}, true
		}
		if l.Topology().Source || l.Connected() {
			return l.InputShapes(), true
		}
		return nil, false
	}

	shapes := make([]tensor.Shape, len(preds))
	for i, p := range preds {
		out, ok := outputs[p]
		if !ok {
			return nil, false
		}
		shapes[i] = out
	}
	return shapes, true
}

// apply stores resolved inputs, reconnecting layers whose inputs changed.
func apply(steps []step) error {
	for _, st := range steps {
		if st.layer.Connected() && sameShapes(st.layer.InputShapes(), st.inputs) {
			continue
		}
		st.layer.Disconnect()
		if err := st.layer.Connect(st.inputs); err != nil {
			return errors.Wrapf(err, "connect %q", st.layer.Name())
		}
	}
	return nil
}

// Initialize resolves every layer in order and materializes parameters.
//
// entry supplies shapes for layers without predecessors, keyed by layer
// name. Input layers fall back to their declared shape. Every shape must
// be fully known once resolved.
func (g *Graph) Initialize(entry map[string]tensor.Shape) error {
	for name := range entry {
		if _, ok := g.state.index[name]; !ok {
			return &InvalidConnectionError{Reason: "unknown entry layer", Layers: []string{name}}
		}
		if len(g.state.preds[name]) > 0 {
			return &InvalidConnectionError{Reason: "layer has predecessors and is not an entry point", Layers: []string{name}}
		}
	}

	order := g.Order()
	steps, err := g.state.resolve(order, entry)
	if err != nil {
		return err
	}
	if err := apply(steps); err != nil {
		return err
	}

	for _, l := range order {
		if !l.Connected() {
			reason := "input shape is unresolved"
			if len(g.state.preds[l.Name()]) == 0 {
				reason = "entry layer has no input shape"
			}
			return &layers.ConnectionError{Layer: l.Name(), Reason: reason}
		}
		if err := l.Initialize(); err != nil {
			return errors.Wrapf(err, "initialize %q", l.Name())
		}
	}
	g.initialized = true
	return nil
}

// Initialized reports whether Initialize succeeded since the last
// structural or property change and every layer still holds its
// parameters.
func (g *Graph) Initialized() bool {
	if !g.initialized {
		return false
	}
	for _, l := range g.state.nodes {
		if !l.Initialized() {
			return false
		}
	}
	return true
}

// Output runs the graph through the backend.
//
// inputs are matched to the entry layers in insertion order and carry a
// leading batch dimension. The results are the outputs of the sink layers
// in insertion order.
func (g *Graph) Output(b layers.Backend, inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !g.Initialized() {
		return nil, errors.New("graph is not initialized")
	}
	entries := g.Inputs()
	if len(inputs) != len(entries) {
		return nil, errors.Errorf("graph has %d entry layers, got %d input tensors", len(entries), len(inputs))
	}

	feed := make(map[string]*tensor.Tensor, len(entries))
	for i, l := range entries {
		feed[l.Name()] = inputs[i]
	}

	values := make(map[string]*tensor.Tensor, len(g.state.nodes))
	for _, l := range g.Order() {
		var xs []*tensor.Tensor
		if preds := g.state.preds[l.Name()]; len(preds) == 0 {
			xs = []*tensor.Tensor{feed[l.Name()]}
		} else {
			for _, p := range preds {
				xs = append(xs, values[p])
			}
		}

		out, err := l.Output(b, xs...)
		if err != nil {
			return nil, errors.Wrapf(err, "output of %q", l.Name())
		}
		values[l.Name()] = out
	}

	sinks := g.Outputs()
	results := make([]*tensor.Tensor, len(sinks))
	for i, l := range sinks {
		results[i] = values[l.Name()]
	}
	return results, nil
}

// Order returns the layers in deterministic topological order.
func (g *Graph) Order() []layers.Layer {
	order, _ := g.state.order()
	return order
}

// Layers returns the layers in insertion order.
func (g *Graph) Layers() []layers.Layer {
	return append([]layers.Layer(nil), g.state.nodes...)
}

// Layer returns the layer with the given name.
func (g *Graph) Layer(name string) (layers.Layer, bool) {
	i, ok := g.state.index[name]
	if !ok {
		return nil, false
	}
	return g.state.nodes[i], true
}

// Predecessors returns the layers feeding the named layer, in connection
// order.
func (g *Graph) Predecessors(name string) []layers.Layer {
	return g.lookup(g.state.preds[name])
}

// Successors returns the layers fed by the named layer, in connection
// order.
func (g *Graph) Successors(name string) []layers.Layer {
	return g.lookup(g.state.succs[name])
}

// Inputs returns the entry layers (no predecessors) in insertion order.
func (g *Graph) Inputs() []layers.Layer {
	var out []layers.Layer
	for _, l := range g.state.nodes {
		if len(g.state.preds[l.Name()]) == 0 {
			out = append(out, l)
		}
	}
	return out
}

// Outputs returns the sink layers (no successors) in insertion order.
func (g *Graph) Outputs() []layers.Layer {
	var out []layers.Layer
	for _, l := range g.state.nodes {
		if len(g.state.succs[l.Name()]) == 0 {
			out = append(out, l)
		}
	}
	return out
}

// InputShapes returns the sample shapes entering the graph, one per entry
// layer. A nil shape is not resolved yet.
func (g *Graph) InputShapes() []tensor.Shape {
	entries := g.Inputs()
	shapes := make([]tensor.Shape, len(entries))
	for i, l := range entries {
		if l.Topology().Source {
			shapes[i] = l.OutputShape()
		} else {
			shapes[i] = l.InputShape()
		}
	}
	return shapes
}

// OutputShapes returns the output shapes of the sink layers, derived from
// the current properties. A nil shape is not resolved yet.
func (g *Graph) OutputShapes() []tensor.Shape {
	_, outputs, _ := g.state.walk(g.Order(), nil, false)
	sinks := g.Outputs()
	shapes := make([]tensor.Shape, len(sinks))
	for i, l := range sinks {
		shapes[i] = outputs[l.Name()]
	}
	return shapes
}

// Parameters returns the materialized parameters of every layer in
// topological order.
func (g *Graph) Parameters() []*layers.Parameter {
	var params []*layers.Parameter
	for _, l := range g.Order() {
		params = append(params, l.Parameters()...)
	}
	return params
}

func (g *Graph) lookup(names []string) []layers.Layer {
	out := make([]layers.Layer, len(names))
	for i, name := range names {
		out[i] = g.state.nodes[g.state.index[name]]
	}
	return out
}

func names(ls []layers.Layer) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			out = append(out, l.Name())
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sameShapes(a, b []tensor.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
