package layers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/layergraph/internal/property"
)

type kindEntry struct {
	doc   string
	props []*property.Descriptor
	build func(Props) (Layer, error)
}

// topologies holds the wiring rules of every kind. newBase reads it.
var topologies = map[string]Topology{
	"input":       {Source: true, FanOut: true},
	"convolution": {},
	"relu":        {FanOut: true},
	"max_pooling": {FanOut: true},
	"concatenate": {FanIn: true, FanOut: true},
	"reshape":     {FanOut: true},
}

var registry = map[string]kindEntry{
	"input": {
		doc:   "Graph entry point declaring the sample shape.",
		props: inputProps,
		build: func(p Props) (Layer, error) { return NewInput(p) },
	},
	"convolution": {
		doc:   "2D convolution over (rows, cols, channels) inputs.",
		props: convolutionProps,
		build: func(p Props) (Layer, error) { return NewConvolution(p) },
	},
	"relu": {
		doc:   "Element-wise max(0, x).",
		build: func(p Props) (Layer, error) { return NewReLU(p) },
	},
	"max_pooling": {
		doc:   "Per-channel maximum over sliding windows.",
		props: maxPoolingProps,
		build: func(p Props) (Layer, error) { return NewMaxPooling(p) },
	},
	"concatenate": {
		doc:   "Joins several inputs along one axis.",
		props: concatenateProps,
		build: func(p Props) (Layer, error) { return NewConcatenate(p) },
	},
	"reshape": {
		doc:   "Changes the sample shape keeping the number of elements.",
		props: reshapeProps,
		build: func(p Props) (Layer, error) { return NewReshape(p) },
	},
}

// New builds a layer of the given kind. Kind names are case-insensitive.
func New(kind string, props Props) (Layer, error) {
	entry, ok := registry[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown layer kind %q, available: %s", kind, strings.Join(Kinds(), ", "))
	}
	return entry.build(props)
}

// Kinds returns the registered kind names, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// KindInfo describes a registered layer kind.
type KindInfo struct {
	Kind       string
	Doc        string
	Topology   Topology
	Properties []*property.Descriptor
}

// Describe returns the documentation and property descriptors of a kind.
func Describe(kind string) (KindInfo, error) {
	name := strings.ToLower(kind)
	entry, ok := registry[name]
	if !ok {
		return KindInfo{}, fmt.Errorf("unknown layer kind %q, available: %s", kind, strings.Join(Kinds(), ", "))
	}
	return KindInfo{
		Kind:       name,
		Doc:        entry.doc,
		Topology:   topologies[name],
		Properties: entry.props,
	}, nil
}
