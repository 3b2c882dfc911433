// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"fmt"
	"testing"

	"github.com/gomlx/autograd/pkg/core/buffers"
	"github.com/gomlx/autograd/pkg/core/graph"
	"github.com/gomlx/autograd/pkg/support/xslices"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/require"
)

// TestGraphFn should build its own leaves, and return both leaves and the root of the graph.
type TestGraphFn func(g *graph.Graph) (leaves []*graph.Node, root *graph.Node)

// ToFloat64 returns a copy of the flat array (a []float32 or a []float64) as a []float64.
func ToFloat64(flat any) []float64 {
	switch f := flat.(type) {
	case []float32:
		return xslices.Map(f, func(v float32) float64 { return float64(v) })
	case []float64:
		return xslices.Copy(f)
	default:
		exceptions.Panicf("graphtest.ToFloat64: unsupported array type %T", flat)
	}
	return nil
}

// Value returns a copy of the value of the node converted to float64.
func Value(node *graph.Node) (values []float64) {
	node.ConstValue(func(flat any) { values = ToFloat64(flat) })
	return
}

// Grad returns a copy of the gradient of the node converted to float64.
func Grad(node *graph.Node) (grads []float64) {
	node.ConstGrad(func(flat any) { grads = ToFloat64(flat) })
	return
}

// valueAt returns the value of the element at the flat index ii of the buffer.
func valueAt(b *buffers.Buffer, ii int) (v float64) {
	b.ConstValue(func(flat any) {
		switch f := flat.(type) {
		case []float32:
			v = float64(f[ii])
		case []float64:
			v = f[ii]
		}
	})
	return
}

// setValueAt sets the element at the flat index ii of the buffer.
func setValueAt(b *buffers.Buffer, ii int, v float64) {
	b.MutableValue(func(flat any) {
		switch f := flat.(type) {
		case []float32:
			f[ii] = float32(v)
		case []float64:
			f[ii] = v
		}
	})
}

// sum of the values of the node.
func sum(node *graph.Node) (total float64) {
	for _, v := range Value(node) {
		total += v
	}
	return
}

// NumericGradient estimates, with central differences, the derivative of the sum of root's values with respect
// to each element of the leaf's value: (f(x+ε) - f(x-ε)) / 2ε.
//
// It perturbs the leaf's Buffer, runs root.Forward() twice per element, and restores the Buffer and root's
// values at the end. Gradients are not touched.
//
// root must produce the same values for the same leaves, so graphs with MatMulAccumulate are not supported.
func NumericGradient(root, leaf *graph.Node, epsilon float64) []float64 {
	b := leaf.LeafBuffer()
	grads := make([]float64, b.Size())
	for ii := range grads {
		original := valueAt(b, ii)
		setValueAt(b, ii, original+epsilon)
		root.Forward()
		plus := sum(root)
		setValueAt(b, ii, original-epsilon)
		root.Forward()
		minus := sum(root)
		setValueAt(b, ii, original)
		grads[ii] = (plus - minus) / (2 * epsilon)
	}
	root.Forward()
	return grads
}

// RequireGradientsMatch runs graph.Differentiate on root, and checks that the gradient of each leaf matches
// the NumericGradient estimate within delta.
func RequireGradientsMatch(t testing.TB, root *graph.Node, leaves []*graph.Node, epsilon, delta float64) {
	t.Helper()
	err := exceptions.TryCatch[error](func() { graph.Differentiate(root) })
	require.NoErrorf(t, err, "failed to differentiate %s", root)
	analytic := xslices.Map(leaves, Grad)
	for ii, leaf := range leaves {
		numeric := NumericGradient(root, leaf, epsilon)
		if xslices.SlicesInDelta(analytic[ii], numeric, delta) {
			continue
		}
		for flatIdx, indices := range leaf.Shape().Iter() {
			if !xslices.SlicesInDelta(analytic[ii][flatIdx:flatIdx+1], numeric[flatIdx:flatIdx+1], delta) {
				require.Failf(t, "gradients don't match",
					"leaf #%d (%s) at index %v: analytic gradient %g, numeric %g (delta=%g)",
					ii, leaf, indices, analytic[ii][flatIdx], numeric[flatIdx], delta)
			}
		}
	}
}

// RunTestGraphFn builds a graph with graphFn, differentiates it, and compares the root value and the leaves
// gradients with wantValue and wantGrads (one per leaf), reporting back any errors in t.
//
// delta is the margin of value on the difference of the results and the wanted values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, wantValue []float64, wantGrads [][]float64,
	delta float64) {
	t.Run(testName, func(t *testing.T) {
		g := graph.New(testName)
		var leaves []*graph.Node
		var root *graph.Node
		err := exceptions.TryCatch[error](func() {
			leaves, root = graphFn(g)
			graph.Differentiate(root)
		})
		require.NoErrorf(t, err, "%s: failed to build or differentiate graph", testName)
		require.Equalf(t, len(wantGrads), len(leaves), "%s: number of wanted gradients different from number of leaves",
			testName)

		value := Value(root)
		require.Truef(t, xslices.SlicesInDelta(wantValue, value, delta), "%s: root value %v, wanted %v",
			testName, value, wantValue)
		for ii, leaf := range leaves {
			grad := Grad(leaf)
			require.Truef(t, xslices.SlicesInDelta(wantGrads[ii], grad, delta), "%s: leaf #%d gradient %v, wanted %v",
				testName, ii, grad, wantGrads[ii])
		}
		if testing.Verbose() {
			fmt.Printf("\n%s:\n%s\n", testName, g)
		}
	})
}
