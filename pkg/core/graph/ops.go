// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/gomlx/autograd/internal/arrays"
	"github.com/gomlx/autograd/pkg/core/shapes"
)

// nodeInputsAdd holds the inputs used for the call to Add.
type nodeInputsAdd struct {
	x, y *Node
}

// Type implements NodeInputs.
func (ni *nodeInputsAdd) Type() NodeType { return NodeTypeAdd }

// String implements NodeInputs.
func (ni *nodeInputsAdd) String() string {
	return fmt.Sprintf("Add(%s)", inputsString(ni.x, ni.y))
}

// Add returns a node with the elementwise sum x + y.
//
// x and y must be of the same graph and shape (dtype and dimensions), or it panics with ErrShapeMismatch.
//
// Its gradient flows unchanged to both inputs.
func Add(x, y *Node) *Node {
	g := checkElementwise("Add", x, y)
	return newNode(g, x.shape, nil, &nodeInputsAdd{x: x, y: y}, x, y)
}

// nodeInputsProduct holds the inputs used for the call to Product.
type nodeInputsProduct struct {
	x, y *Node
}

// Type implements NodeInputs.
func (ni *nodeInputsProduct) Type() NodeType { return NodeTypeProduct }

// String implements NodeInputs.
func (ni *nodeInputsProduct) String() string {
	return fmt.Sprintf("Product(%s)", inputsString(ni.x, ni.y))
}

// Product returns a node with the elementwise (Hadamard) product x ⊙ y.
//
// x and y must be of the same graph and shape (dtype and dimensions), or it panics with ErrShapeMismatch.
//
// The gradient of x is the incoming gradient times y, and vice-versa.
func Product(x, y *Node) *Node {
	g := checkElementwise("Product", x, y)
	return newNode(g, x.shape, nil, &nodeInputsProduct{x: x, y: y}, x, y)
}

// checkElementwise validates the operands of an elementwise binary operation and returns their graph.
func checkElementwise(opName string, x, y *Node) *Graph {
	x.AssertValid()
	g := x.graph
	validateInputs(opName, g, x, y)
	if err := shapes.CheckCompatible(x.shape, y.shape); err != nil {
		panicShapeMismatch("%s(x=%s, y=%s): %v", opName, x.shape, y.shape, err)
	}
	return g
}

func (ni *nodeInputsAdd) forward(n *Node) {
	ni.x.buffer.ConstValue(func(x any) {
		ni.y.buffer.ConstValue(func(y any) {
			n.buffer.MutableValue(func(z any) {
				arrays.Add(z, x, y)
			})
		})
	})
}

func (ni *nodeInputsAdd) backward(dz any) {
	ni.x.pushGrad(dz)
	ni.y.pushGrad(dz)
}

func (ni *nodeInputsAdd) accumulateContributions(dz any) {
	arrays.AddTo(ni.x.pendingArray(), dz)
	arrays.AddTo(ni.y.pendingArray(), dz)
}

func (ni *nodeInputsProduct) forward(n *Node) {
	ni.x.buffer.ConstValue(func(x any) {
		ni.y.buffer.ConstValue(func(y any) {
			n.buffer.MutableValue(func(z any) {
				arrays.Mul(z, x, y)
			})
		})
	})
}

func (ni *nodeInputsProduct) backward(dz any) {
	// dx = dz ⊙ y
	ni.y.buffer.ConstValue(func(y any) {
		arrays.Mul(ni.x.pendingArray(), dz, y)
	})
	ni.x.pushGrad(ni.x.pending)

	// dy = dz ⊙ x
	ni.x.buffer.ConstValue(func(x any) {
		arrays.Mul(ni.y.pendingArray(), dz, x)
	})
	ni.y.pushGrad(ni.y.pending)
}

func (ni *nodeInputsProduct) accumulateContributions(dz any) {
	ni.x.buffer.ConstValue(func(x any) {
		ni.y.buffer.ConstValue(func(y any) {
			arrays.MulAddTo(ni.x.pendingArray(), dz, y)
			arrays.MulAddTo(ni.y.pendingArray(), dz, x)
		})
	})
}
