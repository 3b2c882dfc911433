// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/autograd/pkg/core/buffers"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/gomlx/exceptions"
)

// nodeInputsLeaf holds the inputs of a Leaf node: none, the Buffer is the node's own.
type nodeInputsLeaf struct{}

// Type implements NodeInputs.
func (ni *nodeInputsLeaf) Type() NodeType { return NodeTypeLeaf }

// String implements NodeInputs.
func (ni *nodeInputsLeaf) String() string { return "Leaf()" }

// Leaf creates a node that wraps a Buffer owned by the caller: the caller sets its value, and reads the
// gradient accumulated into it by Backward.
//
// The same Buffer can be wrapped by more than one Leaf, in which case it accumulates the gradients of all of
// them.
func Leaf(g *Graph, buffer *buffers.Buffer) *Node {
	g.AssertValid()
	if buffer == nil {
		exceptions.Panicf("Leaf(): buffer is nil")
	}
	return newNode(g, buffer.Shape(), buffer, &nodeInputsLeaf{})
}

// NewLeaf creates a Leaf node with a new zero-initialized Buffer of the given shape.
// Use Node.LeafBuffer to access it.
func NewLeaf(g *Graph, shape shapes.Shape) *Node {
	g.AssertValid()
	return Leaf(g, buffers.New(shape))
}

// LeafFromFlat creates a Leaf node with a new Buffer initialized with a copy of flat, with the given dimensions.
func LeafFromFlat[T buffers.Float](g *Graph, flat []T, dimensions ...int) *Node {
	g.AssertValid()
	return Leaf(g, buffers.FromFlat(flat, dimensions...))
}
