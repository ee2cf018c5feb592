// Package graph provides ordering and reachability queries over pipeline
// graphs: topological ordering with deterministic tie-breaking, ancestor
// sets, and parent/child indexes in edge-list order.
package graph

import (
	"github.com/pipeweld/pipeweld/internal/ir"
)

// TopoOrder returns a total order over node IDs respecting every edge, using
// Kahn's algorithm. The ready queue is FIFO and is seeded in the caller's
// node order, so output is reproducible for a fixed input ordering, not just
// a fixed graph.
//
// On a cycle the produced order would be shorter than the node count; in that
// case the caller's original node order is returned verbatim with
// acyclic=false. Ordering never fails on malformed topology - it degrades to
// an unordered pass, and the flag lets callers surface the degenerate mode.
func TopoOrder(nodes []ir.Node, edges []ir.Edge) (order []string, acyclic bool) {
	indeg := make(map[string]int, len(nodes))
	outs := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		indeg[n.ID] = 0
	}
	for _, e := range edges {
		indeg[e.Target]++
		outs[e.Source] = append(outs[e.Source], e.Target)
	}

	var queue []string
	for _, n := range nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order = make([]string, 0, len(nodes))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, t := range outs[cur] {
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}

	if len(order) != len(nodes) {
		fallback := make([]string, len(nodes))
		for i, n := range nodes {
			fallback[i] = n.ID
		}
		return fallback, false
	}
	return order, true
}

// Ancestors returns the set of node IDs backward-reachable from targetID over
// predecessor edges, including targetID itself. Used for dead-node
// elimination and for preview-up-to-node execution.
func Ancestors(targetID string, edges []ir.Edge) map[string]bool {
	preds := make(map[string][]string)
	for _, e := range edges {
		preds[e.Target] = append(preds[e.Target], e.Source)
	}

	keep := make(map[string]bool)
	stack := []string{targetID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if keep[cur] {
			continue
		}
		keep[cur] = true
		stack = append(stack, preds[cur]...)
	}
	return keep
}

// Parents returns incoming-neighbor lists keyed by node ID, in edge-list
// order. For joins, the first-encountered edge is the left input and the
// second the right, so edge-list order is load-bearing here.
func Parents(nodes []ir.Node, edges []ir.Edge) map[string][]string {
	p := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		p[n.ID] = nil
	}
	for _, e := range edges {
		p[e.Target] = append(p[e.Target], e.Source)
	}
	return p
}

// Children returns outgoing-neighbor lists keyed by node ID, in edge-list
// order.
func Children(nodes []ir.Node, edges []ir.Edge) map[string][]string {
	c := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		c[n.ID] = nil
	}
	for _, e := range edges {
		c[e.Source] = append(c[e.Source], e.Target)
	}
	return c
}
