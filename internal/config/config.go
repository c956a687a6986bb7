// Package config builds layer graphs from YAML or JSON descriptions.
//
// A description lists layers with their kind and properties and,
// optionally, the chains that connect them. Without chains the layers are
// joined in the order they are listed:
//
//	name: small-cnn
//	layers:
//	  - {name: image, type: input, props: {shape: [28, 28, 1]}}
//	  - {name: conv, type: convolution, props: {size: [3, 3, 8], padding: same}}
//	  - {name: relu, type: relu}
//
// Branches are described as several chains sharing layers:
//
//	connections:
//	  - [image, squeeze, expand1x1, concat]
//	  - [squeeze, expand3x3, concat]
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/layergraph/internal/graph"
	"github.com/born-ml/layergraph/internal/layers"
)

// File is a decoded graph description.
type File struct {
	Name        string      `yaml:"name"`
	Layers      []LayerSpec `yaml:"layers"`
	Connections [][]string  `yaml:"connections,omitempty"`
}

// LayerSpec describes one layer.
type LayerSpec struct {
	Name  string         `yaml:"name"`
	Type  string         `yaml:"type"`
	Props map[string]any `yaml:"props,omitempty"`
}

// Parse decodes a description. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode graph description")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and decodes a description file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return f, nil
}

// Validate checks the description without building layers.
func (f *File) Validate() error {
	if len(f.Layers) == 0 {
		return errors.New("graph description has no layers")
	}

	seen := make(map[string]bool, len(f.Layers))
	for i, spec := range f.Layers {
		if spec.Type == "" {
			return errors.Errorf("layer %d: type is required", i)
		}
		if spec.Name == "" {
			if len(f.Connections) > 0 {
				return errors.Errorf("layer %d: name is required when connections are listed", i)
			}
			continue
		}
		if seen[spec.Name] {
			return errors.Errorf("layer %d: duplicate name %q", i, spec.Name)
		}
		seen[spec.Name] = true
	}

	for i, chain := range f.Connections {
		if len(chain) == 0 {
			return errors.Errorf("connection %d is empty", i)
		}
		for _, name := range chain {
			if !seen[name] {
				return errors.Errorf("connection %d: unknown layer %q", i, name)
			}
		}
	}
	return nil
}

// Build constructs the layers through the kind registry and joins them.
func (f *File) Build() (*graph.Graph, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	built := make([]layers.Layer, len(f.Layers))
	byName := make(map[string]layers.Layer, len(f.Layers))
	for i, spec := range f.Layers {
		props := make(layers.Props, len(spec.Props)+1)
		for k, v := range spec.Props {
			props[k] = v
		}
		if spec.Name != "" {
			props["name"] = spec.Name
		}

		l, err := layers.New(spec.Type, props)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i, spec.Type)
		}
		built[i] = l
		byName[l.Name()] = l
	}

	g := graph.New()
	if len(f.Connections) == 0 {
		if err := g.Join(built...); err != nil {
			return nil, errors.Wrap(err, "join layers")
		}
		return g, nil
	}

	for i, chain := range f.Connections {
		ls := make([]layers.Layer, len(chain))
		for j, name := range chain {
			ls[j] = byName[name]
		}
		if err := g.Join(ls...); err != nil {
			return nil, errors.Wrapf(err, "connection %d", i)
		}
	}

	// Layers not mentioned in any chain still belong to the graph.
	for _, l := range built {
		if _, ok := g.Layer(l.Name()); !ok {
			if err := g.Join(l); err != nil {
				return nil, errors.Wrapf(err, "layer %q", l.Name())
			}
		}
	}
	return g, nil
}

// BuildFile loads a description and builds its graph.
func BuildFile(path string) (*graph.Graph, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return f.Build()
}
