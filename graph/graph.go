// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph assembles layers into a DAG with shape propagation.
//
// Example:
//
//	g := graph.New()
//	if err := g.Join(input, conv, relu); err != nil {
//	    return err
//	}
//	if err := g.Initialize(nil); err != nil {
//	    return err
//	}
//	outs, err := g.Output(cpu.New(), batch)
//
// Graphs can also be loaded from YAML or JSON descriptions with Load.
package graph

import (
	"github.com/born-ml/layergraph/internal/config"
	"github.com/born-ml/layergraph/internal/graph"
)

// Graph is an insertion-ordered DAG of layers.
type Graph = graph.Graph

// InvalidConnectionError reports a topology that cannot be built.
type InvalidConnectionError = graph.InvalidConnectionError

// ErrInvalidConnection is matched by every InvalidConnectionError.
var ErrInvalidConnection = graph.ErrInvalidConnection

// New creates an empty graph.
func New() *Graph {
	return graph.New()
}

// Load builds a graph from a YAML or JSON description file.
func Load(path string) (*Graph, error) {
	return config.BuildFile(path)
}

// Parse builds a graph from an in-memory YAML or JSON description.
func Parse(data []byte) (*Graph, error) {
	f, err := config.Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Build()
}
