// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/autograd/internal/arrays"
	"github.com/gomlx/autograd/pkg/support/sets"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Forward recomputes the value of the node from the current values of its inputs, which are forwarded first.
// It is a no-op for Leaf nodes.
//
// Values are never memoized: every call recomputes the whole sub-graph, once per path reaching each node.
// For all operations but MatMulAccumulate, repeating Forward with unchanged leaves yields the same values.
func (n *Node) Forward() {
	n.AssertValid()
	if klog.V(3).Enabled() {
		klog.Infof("Graph %q: Forward from node #%d", n.graph.name, n.id)
	}
	n.forward()
}

func (n *Node) forward() {
	for _, input := range n.inputNodes {
		input.forward()
	}
	switch ni := n.inputs.(type) {
	case *nodeInputsLeaf:
		// Nothing to compute.
	case *nodeInputsAdd:
		ni.forward(n)
	case *nodeInputsProduct:
		ni.forward(n)
	case *nodeInputsMatMul:
		ni.forward(n)
	default:
		exceptions.Panicf("Forward() not implemented for node type %s", n.Type())
	}
}

// Backward propagates the current gradient of the node to its inputs: it adds the operation's contribution
// (the chain rule) into the gradient of each input, and then continues from each input, recursively.
// It is a no-op for Leaf nodes.
//
// The node's gradient is expected to be set (see SeedGrad), and the values computed (see Forward).
//
// Every path from the node to the leaves is followed, and each visit carries only the contribution that
// arrived along that path. So a node used by N parents receives N contributions, and so do the nodes below it.
// Gradients are accumulated: calling Backward twice without ZeroGrad doubles the gradients of all the nodes
// below the root. See also BackwardTopological.
func (n *Node) Backward() {
	n.AssertValid()
	if klog.V(3).Enabled() {
		klog.Infof("Graph %q: Backward from node #%d", n.graph.name, n.id)
	}
	if n.Type() == NodeTypeLeaf {
		return
	}
	// The root's contribution is its whole gradient.
	dz := n.pendingArray()
	n.buffer.ConstGrad(func(grad any) { arrays.Copy(dz, grad) })
	n.backward(dz)
}

// backward propagates dz, the contribution that just arrived to n, to its inputs.
func (n *Node) backward(dz any) {
	switch ni := n.inputs.(type) {
	case *nodeInputsLeaf:
		// Nothing to propagate.
	case *nodeInputsAdd:
		ni.backward(dz)
	case *nodeInputsProduct:
		ni.backward(dz)
	case *nodeInputsMatMul:
		ni.backward(n, dz)
	default:
		exceptions.Panicf("Backward() not implemented for node type %s", n.Type())
	}
}

// pushGrad adds delta to the gradient of n, and continues the backward pass from n with it.
func (n *Node) pushGrad(delta any) {
	n.buffer.AccumulateGrad(delta)
	n.backward(delta)
}

// pendingArray returns the array that holds the contribution in transit to the node, allocating it the first
// time. Its contents are only meaningful during a backward pass.
func (n *Node) pendingArray() any {
	if n.pending == nil {
		n.pending = arrays.Zeros(n.shape.DType, n.shape.Size())
	}
	return n.pending
}

// BackwardTopological propagates the current gradient of the node to every node below it, like Backward, but
// visiting each node only once: all the contributions to a node are summed before it propagates them further.
//
// It yields the same gradients as Backward (up to floating point rounding, since the order of the sums differ),
// at a cost proportional to the size of the graph, instead of the number of paths.
//
// It relies on the creation order of the nodes (NodeId) being a topological order.
func (n *Node) BackwardTopological() {
	n.AssertValid()
	if klog.V(3).Enabled() {
		klog.Infof("Graph %q: BackwardTopological from node #%d", n.graph.name, n.id)
	}
	if n.buffer.IsGradZero() {
		klog.Warningf("Graph %q: BackwardTopological from node #%d with a zero gradient, "+
			"did you forget to call SeedGrad()?", n.graph.name, n.id)
	}
	if n.Type() == NodeTypeLeaf {
		return
	}

	// Mark the sub-graph and zero the pending contributions.
	reachable := sets.Make[*Node]()
	n.markReachable(reachable)
	for node := range reachable.Items() {
		arrays.Fill(node.pendingArray(), 0)
	}
	n.buffer.ConstGrad(func(grad any) { arrays.Copy(n.pending, grad) })

	// Reverse creation order: a node is only visited after all the nodes that use it.
	g := n.graph
	for id := n.id; id >= 0; id-- {
		node := g.nodes[id]
		if !reachable.Has(node) {
			continue
		}
		dz := node.pending
		if node != n {
			node.buffer.AccumulateGrad(dz)
		}
		switch ni := node.inputs.(type) {
		case *nodeInputsLeaf:
			// Nothing to propagate.
		case *nodeInputsAdd:
			ni.accumulateContributions(dz)
		case *nodeInputsProduct:
			ni.accumulateContributions(dz)
		case *nodeInputsMatMul:
			ni.accumulateContributions(node, dz)
		default:
			exceptions.Panicf("BackwardTopological() not implemented for node type %s", node.Type())
		}
	}
}

// markReachable inserts n and all nodes below it in the set.
func (n *Node) markReachable(visited sets.Set[*Node]) {
	if !visited.Insert(n) {
		return
	}
	for _, input := range n.inputNodes {
		input.markReachable(visited)
	}
}

// ZeroGrad sets to zero the gradient of the node and of every node below it, including the Buffers of the leaves.
func (n *Node) ZeroGrad() {
	n.AssertValid()
	if klog.V(3).Enabled() {
		klog.Infof("Graph %q: ZeroGrad from node #%d", n.graph.name, n.id)
	}
	visited := sets.Make[*Node]()
	n.markReachable(visited)
	for node := range visited.Items() {
		node.buffer.ResetGrad()
	}
}

// ResetGrad sets to zero only the gradient of this node.
func (n *Node) ResetGrad() {
	n.AssertValid()
	n.buffer.ResetGrad()
}

// SeedGrad sets the gradient of the node to ones. It's called on the root of the graph before Backward,
// since the derivative of a value with respect to itself is 1.
func (n *Node) SeedGrad() {
	n.AssertValid()
	n.buffer.SeedGrad()
}

// Differentiate runs a full cycle of the traversal protocol on root: ZeroGrad, Forward, SeedGrad and Backward.
// Afterward, the gradients of the leaves hold the derivatives of the sum of root's values with respect to
// each leaf value.
func Differentiate(root *Node) {
	root.ZeroGrad()
	root.Forward()
	root.SeedGrad()
	root.Backward()
}

// Accumulate is like Differentiate, but it doesn't zero the gradients first: the new gradients are added to
// the ones of previous passes. Useful to accumulate gradients over batches of leaf values.
func Accumulate(root *Node) {
	root.Forward()
	root.SeedGrad()
	root.Backward()
}
