package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/backend/cpu"
	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/layers"
	"github.com/born-ml/layergraph/internal/property"
	"github.com/born-ml/layergraph/internal/tensor"
)

func mustLayer(t *testing.T, kind, name string, props layers.Props) layers.Layer {
	t.Helper()
	if props == nil {
		props = layers.Props{}
	}
	props["name"] = name
	l, err := layers.New(kind, props)
	require.NoError(t, err)
	return l
}

func layerNames(ls []layers.Layer) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name()
	}
	return out
}

// fire builds a squeeze/expand module with two parallel branches merged by
// concatenation.
func fire(t *testing.T, g *Graph, inputShape []int) {
	t.Helper()
	input := mustLayer(t, "input", "image", layers.Props{"shape": inputShape})
	squeeze := mustLayer(t, "convolution", "squeeze", layers.Props{"size": []int{1, 1, 4}})
	relu := mustLayer(t, "relu", "squeeze_relu", nil)
	expand1 := mustLayer(t, "convolution", "expand1x1", layers.Props{"size": []int{1, 1, 8}})
	expand3 := mustLayer(t, "convolution", "expand3x3", layers.Props{"size": []int{3, 3, 8}, "padding": "same"})
	concat := mustLayer(t, "concatenate", "concat", nil)

	require.NoError(t, g.Join(input, squeeze, relu, expand1, concat))
	require.NoError(t, g.Join(relu, expand3, concat))
}

func TestGraph_LinearChain(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []int{28, 28, 3}})
	conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 16}})
	relu := mustLayer(t, "relu", "relu", nil)

	require.NoError(t, g.Join(input, conv, relu))

	// Shapes are propagated eagerly.
	assert.Equal(t, tensor.Of(28, 28, 3), conv.InputShape())
	assert.Equal(t, tensor.Of(26, 26, 16), conv.OutputShape())
	assert.Equal(t, tensor.Of(26, 26, 16), relu.OutputShape())

	assert.Equal(t, []string{"image", "conv", "relu"}, layerNames(g.Order()))
	assert.Equal(t, []string{"image"}, layerNames(g.Inputs()))
	assert.Equal(t, []string{"relu"}, layerNames(g.Outputs()))
	assert.Equal(t, []tensor.Shape{tensor.Of(28, 28, 3)}, g.InputShapes())
	assert.Equal(t, []tensor.Shape{tensor.Of(26, 26, 16)}, g.OutputShapes())
	assert.Equal(t, []string{"image"}, layerNames(g.Predecessors("conv")))
	assert.Equal(t, []string{"relu"}, layerNames(g.Successors("conv")))

	for _, l := range g.Layers() {
		assert.Equal(t, g.ID(), l.Owner())
	}

	l, ok := g.Layer("conv")
	require.True(t, ok)
	assert.Same(t, conv, l)
	_, ok = g.Layer("missing")
	assert.False(t, ok)
}

func TestGraph_BranchAndMerge(t *testing.T) {
	g := New()
	fire(t, g, []int{8, 8, 16})

	assert.Equal(t,
		[]string{"image", "squeeze", "squeeze_relu", "expand1x1", "expand3x3", "concat"},
		layerNames(g.Order()))

	concat, _ := g.Layer("concat")
	assert.Equal(t, []tensor.Shape{tensor.Of(8, 8, 8), tensor.Of(8, 8, 8)}, concat.InputShapes())
	assert.Equal(t, tensor.Of(8, 8, 16), concat.OutputShape())
	assert.Equal(t, []string{"expand1x1", "expand3x3"}, layerNames(g.Predecessors("concat")))
	assert.Equal(t, []string{"expand1x1", "expand3x3"}, layerNames(g.Successors("squeeze_relu")))
}

func TestGraph_OrderIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		g := New()
		a := mustLayer(t, "input", "a", layers.Props{"shape": []int{4}})
		b := mustLayer(t, "input", "b", layers.Props{"shape": []int{4}})
		ra := mustLayer(t, "relu", "ra", nil)
		rb := mustLayer(t, "relu", "rb", nil)
		concat := mustLayer(t, "concatenate", "concat", nil)

		require.NoError(t, g.Join(b, rb))
		require.NoError(t, g.Join(a, ra, concat))
		require.NoError(t, g.Join(rb, concat))

		assert.Equal(t, []string{"b", "rb", "a", "ra", "concat"}, layerNames(g.Order()))
		assert.Equal(t, []string{"b", "a"}, layerNames(g.Inputs()))
		assert.Equal(t, tensor.Of(8), concat.OutputShape())
	}
}

func TestGraph_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, g *Graph) error
	}{
		{
			name: "cycle",
			build: func(t *testing.T, g *Graph) error {
				input := mustLayer(t, "input", "in", layers.Props{"shape": []int{4}})
				concat := mustLayer(t, "concatenate", "concat", nil)
				relu := mustLayer(t, "relu", "relu", nil)
				require.NoError(t, g.Join(input, concat, relu))
				return g.Join(relu, concat)
			},
		},
		{
			name: "self loop",
			build: func(t *testing.T, g *Graph) error {
				relu := mustLayer(t, "relu", "relu", nil)
				return g.Join(relu, relu)
			},
		},
		{
			name: "duplicate edge",
			build: func(t *testing.T, g *Graph) error {
				input := mustLayer(t, "input", "in", layers.Props{"shape": []int{4}})
				relu := mustLayer(t, "relu", "relu", nil)
				require.NoError(t, g.Join(input, relu))
				return g.Connect(input, relu)
			},
		},
		{
			name: "fan-in on convolution",
			build: func(t *testing.T, g *Graph) error {
				a := mustLayer(t, "input", "a", layers.Props{"shape": []int{5, 5, 1}})
				b := mustLayer(t, "input", "b", layers.Props{"shape": []int{5, 5, 1}})
				conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})
				require.NoError(t, g.Join(a, conv))
				return g.Join(b, conv)
			},
		},
		{
			name: "fan-out on convolution",
			build: func(t *testing.T, g *Graph) error {
				input := mustLayer(t, "input", "in", layers.Props{"shape": []int{5, 5, 1}})
				conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})
				r1 := mustLayer(t, "relu", "r1", nil)
				r2 := mustLayer(t, "relu", "r2", nil)
				require.NoError(t, g.Join(input, conv, r1))
				return g.Join(conv, r2)
			},
		},
		{
			name: "predecessor of input",
			build: func(t *testing.T, g *Graph) error {
				a := mustLayer(t, "input", "a", layers.Props{"shape": []int{4}})
				b := mustLayer(t, "input", "b", layers.Props{"shape": []int{4}})
				return g.Join(a, b)
			},
		},
		{
			name: "duplicate name",
			build: func(t *testing.T, g *Graph) error {
				input := mustLayer(t, "input", "in", layers.Props{"shape": []int{4}})
				r1 := mustLayer(t, "relu", "relu", nil)
				r2 := mustLayer(t, "relu", "relu", nil)
				require.NoError(t, g.Join(input, r1))
				return g.Join(input, r2)
			},
		},
		{
			name: "foreign layer",
			build: func(t *testing.T, g *Graph) error {
				input := mustLayer(t, "input", "in", layers.Props{"shape": []int{4}})
				relu := mustLayer(t, "relu", "relu", nil)
				require.NoError(t, New().Join(input, relu))
				return g.Join(relu)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := tt.build(t, g)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConnection), err.Error())

			var invalid *InvalidConnectionError
			require.True(t, errors.As(err, &invalid))
			assert.NotEmpty(t, invalid.Layers)
		})
	}
}

func TestGraph_FailedJoinLeavesGraphUnchanged(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "in", layers.Props{"shape": []int{4}})
	concat := mustLayer(t, "concatenate", "concat", nil)
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(input, concat, relu))

	extra := mustLayer(t, "relu", "extra", nil)
	require.Error(t, g.Join(relu, extra, concat))

	assert.Equal(t, []string{"in", "concat", "relu"}, layerNames(g.Layers()))
	assert.Empty(t, g.Successors("relu"))
	assert.Len(t, g.Predecessors("concat"), 1)
	assert.Empty(t, extra.Owner())
}

func TestGraph_ShapeErrors(t *testing.T) {
	t.Run("rank mismatch", func(t *testing.T) {
		g := New()
		input := mustLayer(t, "input", "in", layers.Props{"shape": []int{10, 10}})
		conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})

		err := g.Join(input, conv)
		require.Error(t, err)
		assert.True(t, errors.Is(err, layers.ErrConnection))
		assert.False(t, errors.Is(err, ErrInvalidConnection))
		assert.Contains(t, err.Error(), "got 2 with shape (10, 10)")

		assert.Empty(t, g.Layers())
		assert.Empty(t, conv.Owner())
		assert.False(t, conv.Connected())
	})

	t.Run("inconsistent predecessors", func(t *testing.T) {
		g := New()
		a := mustLayer(t, "input", "a", layers.Props{"shape": []int{4, 4, 1}})
		b := mustLayer(t, "input", "b", layers.Props{"shape": []int{5, 5, 1}})
		concat := mustLayer(t, "concatenate", "concat", nil)
		require.NoError(t, g.Join(a, concat))

		err := g.Join(b, concat)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConnection))
		assert.True(t, errors.Is(err, layers.ErrConnection))

		var invalid *InvalidConnectionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, []string{"a", "b", "concat"}, invalid.Layers)

		// The first connection survives.
		assert.Equal(t, tensor.Of(4, 4, 1), concat.OutputShape())
	})
}

func TestGraph_Initialize(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []any{nil, nil, 3}})
	conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 4}})
	require.NoError(t, g.Join(input, conv))

	assert.Equal(t, tensor.Of(tensor.Unknown, tensor.Unknown, 4), conv.OutputShape())

	err := g.Initialize(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, layers.ErrConnection))
	assert.False(t, g.Initialized())

	err = g.Initialize(map[string]tensor.Shape{"image": tensor.Of(10, 10, 2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, layers.ErrConnection))

	err = g.Initialize(map[string]tensor.Shape{"missing": tensor.Of(10, 10, 3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConnection))

	require.NoError(t, g.Initialize(map[string]tensor.Shape{"image": tensor.Of(10, 10, 3)}))
	assert.True(t, g.Initialized())
	assert.Equal(t, tensor.Of(8, 8, 4), conv.OutputShape())
	assert.Equal(t, tensor.Of(3, 3, 3, 4), conv.(*layers.Convolution).WeightShape())
	assert.Len(t, g.Parameters(), 2)

	// A new layer keeps the supplied entry shape and resets the flag.
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(conv, relu))
	assert.False(t, g.Initialized())
	assert.Equal(t, tensor.Of(8, 8, 4), relu.OutputShape())
}

func TestGraph_InitializeNonInputEntry(t *testing.T) {
	g := New()
	conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{2, 2, 6}})
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(conv, relu))
	assert.Nil(t, relu.OutputShape())

	err := g.Initialize(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry layer has no input shape")

	require.NoError(t, g.Initialize(map[string]tensor.Shape{"conv": tensor.Of(28, 28, 1)}))
	assert.Equal(t, []tensor.Shape{tensor.Of(28, 28, 1)}, g.InputShapes())
	assert.Equal(t, tensor.Of(2, 2, 1, 6), conv.(*layers.Convolution).Weight().Shape())
	assert.Equal(t, tensor.Of(6), conv.(*layers.Convolution).Bias().Shape())
	assert.Equal(t, tensor.Of(27, 27, 6), relu.OutputShape())
}

func TestGraph_Output(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []int{5, 5, 1}})
	conv := mustLayer(t, "convolution", "conv", layers.Props{
		"size": []int{3, 3, 1}, "weight": 1, "bias": 0, "padding": 2,
	})
	require.NoError(t, g.Join(input, conv))

	_, err := g.Output(cpu.New(), tensor.Ones(tensor.Of(1, 5, 5, 1)))
	require.Error(t, err)

	require.NoError(t, g.Initialize(nil))

	_, err = g.Output(cpu.New())
	require.Error(t, err)

	outs, err := g.Output(cpu.New(), tensor.Ones(tensor.Of(2, 5, 5, 1)))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, tensor.Of(2, 7, 7, 1), outs[0].Shape())
	assert.Equal(t, 1.0, outs[0].At(1, 0, 0, 0))
	assert.Equal(t, 9.0, outs[0].At(1, 3, 3, 0))
	assert.Equal(t, 6.0, outs[0].At(0, 1, 3, 0))

	_, err = g.Output(cpu.New(), tensor.Ones(tensor.Of(1, 4, 5, 1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, layers.ErrConnection))
}

func TestGraph_OutputBranches(t *testing.T) {
	g := New()
	fire(t, g, []int{6, 6, 3})
	require.NoError(t, g.Initialize(nil))

	outs, err := g.Output(cpu.New(), tensor.Ones(tensor.Of(2, 6, 6, 3)))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, tensor.Of(2, 6, 6, 16), outs[0].Shape())
	assert.Equal(t, g.OutputShapes()[0].WithBatch(2), outs[0].Shape())
}

func TestGraph_SetPropagates(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []int{5, 5, 1}})
	conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(input, conv, relu))
	require.NoError(t, g.Initialize(nil))
	require.True(t, g.Initialized())

	require.NoError(t, g.Set("conv", "size", []int{3, 3, 4}))
	assert.Equal(t, tensor.Of(3, 3, 4), relu.InputShape())
	assert.Equal(t, tensor.Of(3, 3, 4), relu.OutputShape())
	assert.Equal(t, []tensor.Shape{tensor.Of(3, 3, 4)}, g.OutputShapes())
	assert.False(t, conv.Initialized())
	assert.False(t, g.Initialized())

	_, err := g.Output(cpu.New(), tensor.Ones(tensor.Of(1, 5, 5, 1)))
	require.Error(t, err)

	require.NoError(t, g.Initialize(nil))
	assert.True(t, g.Initialized())
	assert.Equal(t, tensor.Of(3, 3, 1, 4), conv.(*layers.Convolution).Weight().Shape())
}

func TestGraph_SetRejectsBrokenShape(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []int{5, 5, 1}})
	c := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(input, c, relu))
	require.NoError(t, g.Initialize(nil))

	err := g.Set("conv", "size", []int{9, 9, 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, conv.ErrArithmetic))
	assert.True(t, errors.Is(err, layers.ErrConnection))
	assert.Equal(t, []int{3, 3, 1}, c.Properties().Get("size"))
	assert.Equal(t, tensor.Of(3, 3, 1), relu.OutputShape())
	assert.Equal(t, []tensor.Shape{tensor.Of(3, 3, 1)}, g.OutputShapes())
	assert.True(t, g.Initialized())

	err = g.Set("conv", "size", []int{3, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, property.ErrInvalidValue))

	err = g.Set("missing", "size", []int{3, 3, 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConnection))
}

func TestGraph_DirectLayerSetResetsInitialized(t *testing.T) {
	g := New()
	input := mustLayer(t, "input", "image", layers.Props{"shape": []int{5, 5, 1}})
	conv := mustLayer(t, "convolution", "conv", layers.Props{"size": []int{3, 3, 1}})
	relu := mustLayer(t, "relu", "relu", nil)
	require.NoError(t, g.Join(input, conv, relu))
	require.NoError(t, g.Initialize(nil))

	require.NoError(t, conv.Set("size", []int{3, 3, 2}))
	assert.False(t, g.Initialized())
	assert.Equal(t, []tensor.Shape{tensor.Of(3, 3, 2)}, g.OutputShapes())

	// Initialize reconnects the stale successor.
	require.NoError(t, g.Initialize(nil))
	assert.True(t, g.Initialized())
	assert.Equal(t, tensor.Of(3, 3, 2), relu.InputShape())
}
