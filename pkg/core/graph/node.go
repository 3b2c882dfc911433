// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/autograd/pkg/core/buffers"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/gomlx/autograd/pkg/support/xslices"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// NodeType identifies the operation of a Node.
type NodeType int

const (
	NodeTypeInvalid NodeType = iota
	NodeTypeLeaf
	NodeTypeAdd
	NodeTypeProduct
	NodeTypeMatMul
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case NodeTypeLeaf:
		return "Leaf"
	case NodeTypeAdd:
		return "Add"
	case NodeTypeProduct:
		return "Product"
	case NodeTypeMatMul:
		return "MatMul"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node is a value in the computation graph: either a Leaf or the output of an operation, that can be used as
// input to further operations.
//
// Each Node has a Buffer with its value and its gradient. A Leaf's Buffer is owned by the caller, while
// operation nodes own theirs, and only expose it for reading (see ConstValue and ConstGrad).
//
// Node.String allows for a pretty-printing of node. To see the full graph with all nodes, use Graph.String.
type Node struct {
	graph  *Graph
	id     NodeId // id within graph.
	shape  shapes.Shape
	buffer *buffers.Buffer

	// inputNodes are the edges of the computation graph.
	inputNodes []*Node

	// inputs holds the operation specific parameters.
	inputs NodeInputs

	// pending holds the gradient contribution in transit to this node during a backward pass. It's lazily
	// allocated with the same dtype and size as the node's buffer.
	pending any

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// NodeInputs represents the inputs to node. The common interface is to return the type of the node.
// For the input parameters themselves, the pointer needs to be cast to the corresponding type, named
// nodeInputs<operation_name>.
type NodeInputs interface {
	Type() NodeType

	// String prints a descriptive representation of the node, using its parameters.
	String() string
}

// newNode creates an operation or leaf node, registering it in the graph.
// If buffer is nil, one is allocated with the given shape.
func newNode(g *Graph, shape shapes.Shape, buffer *buffers.Buffer, inputs NodeInputs, inputNodes ...*Node) *Node {
	if buffer == nil {
		buffer = buffers.New(shape)
	}
	n := &Node{
		graph:      g,
		id:         InvalidNodeId,
		shape:      buffer.Shape(),
		buffer:     buffer,
		inputNodes: inputNodes,
		inputs:     inputs,
	}
	g.registerNode(n)
	return n
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Shape of the Node's output. It is fixed for the lifetime of the node.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Invalid()
	}
	return n.shape
}

// DType returns the DType of the node's shape.
func (n *Node) DType() dtypes.DType {
	return n.Shape().DType
}

// Rank returns the rank of the node's shape.
func (n *Node) Rank() int {
	return n.Shape().Rank()
}

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool {
	return n.Shape().IsScalar()
}

// Id is the unique id of this node within the Graph.
func (n *Node) Id() NodeId {
	return n.id
}

// Type identifies the operation performed by the node.
func (n *Node) Type() NodeType {
	if n == nil || n.inputs == nil {
		return NodeTypeInvalid
	}
	return n.inputs.Type()
}

// Inputs are the other nodes that are direct inputs to the node. Leaf nodes have none.
// The slice is owned by the Node and shouldn't be changed.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// AssertValid panics if `n` is nil, or if it is in an invalid state.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	if n.inputs == nil || n.buffer == nil {
		exceptions.Panicf("Node in an invalid state")
	}
	n.graph.AssertValid()
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by `Graph.SetTraced(true)`.
func (n *Node) Trace() error {
	return n.trace
}

// ConstValue calls accessFn with the flat value of the node: a []float32 or []float64 depending on the dtype.
// The data must not be changed and is only valid during the call.
func (n *Node) ConstValue(accessFn func(flat any)) {
	n.AssertValid()
	n.buffer.ConstValue(accessFn)
}

// ConstGrad calls accessFn with the flat gradient of the node.
// The data must not be changed and is only valid during the call.
func (n *Node) ConstGrad(accessFn func(flat any)) {
	n.AssertValid()
	n.buffer.ConstGrad(accessFn)
}

// LeafBuffer returns the Buffer wrapped by a Leaf node. It panics for operation nodes, whose buffers are
// only written by the graph.
func (n *Node) LeafBuffer() *buffers.Buffer {
	n.AssertValid()
	if n.Type() != NodeTypeLeaf {
		exceptions.Panicf("LeafBuffer() called on a non-leaf node %s", n)
	}
	return n.buffer
}

// ValueOf returns a copy of the flat value of the node.
// It panics if T doesn't match the node's dtype.
func ValueOf[T buffers.Float](n *Node) []T {
	n.AssertValid()
	return buffers.CopyValue[T](n.buffer)
}

// GradOf returns a copy of the flat gradient of the node.
// It panics if T doesn't match the node's dtype.
func GradOf[T buffers.Float](n *Node) []T {
	n.AssertValid()
	return buffers.CopyGrad[T](n.buffer)
}

// String implements the `fmt.Stringer` interface.
func (n *Node) String() (str string) {
	if n == nil {
		return "Node(nil)"
	}
	if n.Type() == NodeTypeInvalid {
		str = "Invalid(?)"
	} else {
		str = n.inputs.String()
	}
	return fmt.Sprintf("%s -> %s - mem: %s", str, n.shape, humanize.Bytes(uint64(n.shape.Memory())))
}

// inputsString formats the node inputs as "#id, #id".
func inputsString(inputs ...*Node) string {
	return strings.Join(xslices.Map(inputs, func(n *Node) string {
		return fmt.Sprintf("#%d", n.id)
	}), ", ")
}

// validateInputs checks the inputs are valid and all belong to g.
func validateInputs(opName string, g *Graph, inputs ...*Node) {
	for ii, input := range inputs {
		if input == nil {
			exceptions.Panicf("%s: input #%d is nil", opName, ii)
		}
		input.AssertValid()
		if input.graph != g {
			exceptions.Panicf("%s: input #%d (%s) belongs to graph %q, but operation is being created in graph %q",
				opName, ii, input, input.graph.name, g.name)
		}
	}
}
