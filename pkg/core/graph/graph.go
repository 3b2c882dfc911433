// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements an eager reverse-mode automatic differentiation engine over dense float arrays.
//
// The main elements in the package are:
//
//   - Graph is the arena that owns the nodes of one computation. Nodes are identified by their NodeId, which
//     is also their creation order. Since a node can only be created from existing nodes, the creation order
//     is a topological order.
//
//   - Node is either a Leaf, wrapping a caller-owned buffers.Buffer, or an operation (Add, Product, MatMul)
//     that owns the Buffer of its output. Each node has a fixed shape known at creation time.
//
// # Traversal protocol
//
// Values and gradients are computed in place, driven by the caller on the root node:
//
//  1. root.ZeroGrad() zeroes the gradients of the root and of every node below it.
//  2. root.Forward() recomputes the values bottom-up, always: nothing is memoized.
//  3. root.SeedGrad() sets the root gradient to ones.
//  4. root.Backward() propagates the gradient top-down, adding each operation's contribution into the
//     gradients of its inputs, following every path from the root to the leaves.
//
// Differentiate runs the 4 steps, and Accumulate runs steps 2 to 4, adding gradients to the ones of previous
// passes. Skipping ZeroGrad is how gradients are accumulated over batches.
//
// Backward visits a node once per path reaching it, which can be exponential on graphs with many shared
// sub-expressions. Node.BackwardTopological yields the same gradients visiting each node once.
//
// # Error Handling
//
// Like in the rest of GoMLX, errors are "thrown" with panic, carrying an error with a stack-trace. Shape
// errors wrap ErrShapeMismatch or ErrDimensionalityMismatch, and can be tested with errors.Is, after recovering
// them with exceptions.TryCatch[error] (package github.com/gomlx/exceptions).
//
// Graphs and their buffers are not safe for concurrent use.
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gomlx/autograd/pkg/support/xslices"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Graph holds the nodes of a computation.
type Graph struct {
	id   GraphId
	name string

	// nodes include all nodes known to Graph, indexed by their NodeId.
	nodes []*Node

	traced bool
}

// GraphId is globally unique.
type GraphId int

var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// NodeId is a unique NodeId within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// New constructs an empty Graph.
// If name is empty, one is generated from its GraphId.
func New(name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()

	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		id:   graphCount,
		name: name,
	}
	graphCount += 1
	return g
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// GraphId is a globally unique id of the graph.
func (g *Graph) GraphId() GraphId { return g.id }

// AssertValid panics if the graph is nil.
func (g *Graph) AssertValid() {
	if g == nil {
		exceptions.Panicf("Graph is nil")
	}
}

// SetTraced defines whether each node creation is traced.
// If true, every node will save a stack-trace of where it was created, which is helpful for debugging.
// See Node.Trace.
//
// This is expensive, but can be handy for debugging.
// It returns the graph itself, so it can be cascaded.
func (g *Graph) SetTraced(traced bool) *Graph {
	g.AssertValid()
	g.traced = traced
	return g
}

// registerNode in the graph and sets a new unique id within the Graph.
// If Graph.traced is set, it also sets Node.trace to an error with a stack-trace.
func (g *Graph) registerNode(node *Node) {
	g.AssertValid()
	node.id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	if g.traced {
		node.trace = errors.New("Stack-trace")
	}
	if klog.V(2).Enabled() {
		klog.Infof("Graph %q: created node #%d %s", g.name, node.id, node)
	}
}

// NodeById returns the node for the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	g.AssertValid()
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// LastNode returns the last node created.
// It returns nil if no node has been created for this graph yet.
func (g *Graph) LastNode() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return xslices.Last(g.nodes)
}

// NumNodes returns the number of nodes created in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// Nodes return a slice of all nodes, in creation order.
// The slice is owned by Graph and shouldn't be changed.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// String converts the Graph to a multiline string with a description of the full graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)!?"
	}
	parts := []string{
		fmt.Sprintf("Graph %q: %d nodes", g.name, len(g.nodes)),
	}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("\t#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}
