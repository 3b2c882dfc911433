// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphtest

import (
	"testing"

	"github.com/gomlx/autograd/pkg/core/graph"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestNumericGradient(t *testing.T) {
	g := graph.New("numeric")
	x := graph.LeafFromFlat(g, []float64{1, -2, 3}, 3)
	y := graph.Add(graph.Product(x, x), x)
	y.Forward()
	numeric := NumericGradient(y, x, 1e-4)
	require.InDeltaSlice(t, []float64{3, -3, 7}, numeric, 1e-6)

	// Values are restored, gradients untouched.
	require.Equal(t, []float64{1, -2, 3}, Value(x))
	require.Equal(t, []float64{2, 2, 12}, Value(y))
	require.Equal(t, []float64{0, 0, 0}, Grad(x))
}

func TestRequireGradientsMatch(t *testing.T) {
	g := graph.New("gradients_match")
	a := graph.LeafFromFlat(g, []float64{
		1, 2, 3,
		-1, 0.5, 2,
	}, 2, 3)
	b := graph.LeafFromFlat(g, []float64{
		0.1, 0.2,
		-0.3, 0.4,
		0.5, -0.6,
	}, 3, 2)
	c := graph.LeafFromFlat(g, []float64{1, 2, 3, 4}, 2, 2)
	ab := graph.MatMul(a, b, shapes.Make(dtypes.Float64, 2, 2))
	root := graph.Product(graph.Add(ab, c), ab)
	RequireGradientsMatch(t, root, []*graph.Node{a, b, c}, 1e-5, 1e-6)

	// Shared sub-expressions in float32.
	g = graph.New("gradients_match_float32")
	x := graph.LeafFromFlat(g, []float32{0.5, 1.5}, 2)
	s := graph.Product(x, x)
	root = graph.Add(graph.Product(s, x), graph.Add(s, s))
	RequireGradientsMatch(t, root, []*graph.Node{x}, 1e-2, 1e-2)
}

func TestRunTestGraphFn(t *testing.T) {
	RunTestGraphFn(t, "Composite", func(g *graph.Graph) (leaves []*graph.Node, root *graph.Node) {
		x := graph.LeafFromFlat(g, []float32{3}, 1)
		return []*graph.Node{x}, graph.Add(graph.Product(x, x), x)
	}, []float64{12}, [][]float64{{7}}, 0)

	RunTestGraphFn(t, "MatMul", func(g *graph.Graph) (leaves []*graph.Node, root *graph.Node) {
		x := graph.LeafFromFlat(g, []float64{1, 2, 3}, 1, 3)
		y := graph.LeafFromFlat(g, []float64{
			1, 2, 3, 4, 5,
			1, 2, 3, 4, 5,
			1, 2, 3, 4, 5,
		}, 3, 5)
		return []*graph.Node{x, y}, graph.MatMul(x, y, shapes.Make(dtypes.Float64, 1, 5))
	}, []float64{6, 12, 18, 24, 30}, [][]float64{
		{15, 15, 15},
		{1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 3, 3, 3, 3, 3},
	}, 0)
}
