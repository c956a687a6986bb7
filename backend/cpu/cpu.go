// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference backend for layer outputs.
//
// Convolutions use im2col with gonum dot products and are split across
// goroutines by batch and output row.
//
//	g := graph.New()
//	_ = g.Join(input, conv)
//	_ = g.Initialize(nil)
//	outs, err := g.Output(cpu.New(), x)
package cpu

import (
	internalcpu "github.com/born-ml/layergraph/internal/backend/cpu"
	"github.com/born-ml/layergraph/internal/parallel"
	"github.com/born-ml/layergraph/layers"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements layers.Backend.
var _ layers.Backend = (*Backend)(nil)

// New creates a new CPU backend using all available cores.
func New() *Backend {
	return internalcpu.New()
}

// Sequential creates a CPU backend that runs every kernel on the calling
// goroutine.
func Sequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}
