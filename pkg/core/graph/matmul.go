// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/gomlx/autograd/internal/arrays"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/pkg/errors"
)

// nodeInputsMatMul holds the inputs used for the call to MatMul.
type nodeInputsMatMul struct {
	x, y *Node

	// accumulate the product into the output value, instead of overwriting it.
	accumulate bool
}

// Type implements NodeInputs.
func (ni *nodeInputsMatMul) Type() NodeType { return NodeTypeMatMul }

// String implements NodeInputs.
func (ni *nodeInputsMatMul) String() string {
	if ni.accumulate {
		return fmt.Sprintf("MatMul(%s, accumulate)", inputsString(ni.x, ni.y))
	}
	return fmt.Sprintf("MatMul(%s)", inputsString(ni.x, ni.y))
}

// MatMul returns a node with the matrix product x · y.
//
// x must be of rank 2 with shape [m, k], and y of rank 2 with shape [k, n], otherwise it panics with
// ErrDimensionalityMismatch. outputShape must be [m, n], and x and y must have the same dtype as outputShape,
// otherwise it panics with ErrShapeMismatch.
//
// outputShape is not inferred: it states the shape the caller expects.
//
// The gradient of x is dz · yᵀ and the gradient of y is xᵀ · dz, where dz is the incoming gradient.
func MatMul(x, y *Node, outputShape shapes.Shape) *Node {
	return matMulImpl("MatMul", x, y, outputShape, false)
}

// MatMulAccumulate is like MatMul, but each Forward adds the product to the current value of the output, instead
// of overwriting it. So the value of the node after k forward passes is k·(x · y), assuming x and y didn't change.
//
// Gradients are the same as with MatMul.
func MatMulAccumulate(x, y *Node, outputShape shapes.Shape) *Node {
	return matMulImpl("MatMulAccumulate", x, y, outputShape, true)
}

func matMulImpl(opName string, x, y *Node, outputShape shapes.Shape, accumulate bool) *Node {
	x.AssertValid()
	g := x.graph
	validateInputs(opName, g, x, y)
	if x.Rank() != 2 || y.Rank() != 2 {
		panicDimensionalityMismatch("%s(x=%s, y=%s): operands must be of rank 2", opName, x.shape, y.shape)
	}
	if x.DType() != y.DType() || x.DType() != outputShape.DType {
		panicShapeMismatch("%s(x=%s, y=%s, outputShape=%s): dtypes must match", opName, x.shape, y.shape, outputShape)
	}
	if x.shape.Dim(1) != y.shape.Dim(0) {
		panicShapeMismatch("%s(x=%s, y=%s): inner dimensions don't match (%d != %d)",
			opName, x.shape, y.shape, x.shape.Dim(1), y.shape.Dim(0))
	}
	if err := outputShape.CheckDims(x.shape.Dim(0), y.shape.Dim(1)); err != nil {
		panicShapeMismatch("%s(x=%s, y=%s): invalid outputShape: %v", opName, x.shape, y.shape, err)
	}
	return newNode(g, outputShape, nil, &nodeInputsMatMul{x: x, y: y, accumulate: accumulate}, x, y)
}

// matrices returns the 2-D views of x, y and the output z.
// It re-validates the dimensions through the arrays package, and panics with ErrDimensionalityMismatch if they
// can't be viewed as matrices.
func (ni *nodeInputsMatMul) matrices(n *Node) (x, y, z arrays.Matrix) {
	var err error
	for _, pair := range []struct {
		m     *arrays.Matrix
		shape shapes.Shape
	}{{&x, ni.x.shape}, {&y, ni.y.shape}, {&z, n.shape}} {
		*pair.m, err = arrays.As2D(pair.shape.Dimensions)
		if err != nil {
			panic(errors.Wrapf(ErrDimensionalityMismatch, "%s: %v", ni, err))
		}
	}
	return
}

// matMul runs arrays.MatMul and converts its errors to ErrShapeMismatch.
func (ni *nodeInputsMatMul) matMul(dst any, dstMatrix arrays.Matrix, a, b arrays.MatMulOp, accumulate bool) {
	if err := arrays.MatMul(dst, dstMatrix, a, b, accumulate); err != nil {
		panic(errors.Wrapf(ErrShapeMismatch, "%s: %v", ni, err))
	}
}

func (ni *nodeInputsMatMul) forward(n *Node) {
	xM, yM, zM := ni.matrices(n)
	ni.x.buffer.ConstValue(func(x any) {
		ni.y.buffer.ConstValue(func(y any) {
			n.buffer.MutableValue(func(z any) {
				ni.matMul(z, zM, arrays.MatMulOp{Flat: x, Matrix: xM}, arrays.MatMulOp{Flat: y, Matrix: yM},
					ni.accumulate)
			})
		})
	})
}

// gradX computes dx = dz · yᵀ into the pending array of x, either overwriting it or adding to it.
func (ni *nodeInputsMatMul) gradX(n *Node, dz any, accumulate bool) {
	xM, yM, zM := ni.matrices(n)
	ni.y.buffer.ConstValue(func(y any) {
		ni.matMul(ni.x.pendingArray(), xM,
			arrays.MatMulOp{Flat: dz, Matrix: zM}, arrays.MatMulOp{Flat: y, Matrix: yM, Transposed: true},
			accumulate)
	})
}

// gradY computes dy = xᵀ · dz into the pending array of y, either overwriting it or adding to it.
func (ni *nodeInputsMatMul) gradY(n *Node, dz any, accumulate bool) {
	xM, yM, zM := ni.matrices(n)
	ni.x.buffer.ConstValue(func(x any) {
		ni.matMul(ni.y.pendingArray(), yM,
			arrays.MatMulOp{Flat: x, Matrix: xM, Transposed: true}, arrays.MatMulOp{Flat: dz, Matrix: zM},
			accumulate)
	})
}

func (ni *nodeInputsMatMul) backward(n *Node, dz any) {
	ni.gradX(n, dz, false)
	ni.x.pushGrad(ni.x.pending)
	ni.gradY(n, dz, false)
	ni.y.pushGrad(ni.y.pending)
}

func (ni *nodeInputsMatMul) accumulateContributions(n *Node, dz any) {
	ni.gradX(n, dz, true)
	ni.gradY(n, dz, true)
}
