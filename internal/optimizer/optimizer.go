// Package optimizer rewrites pipeline graphs: dead-node elimination against a
// designated sink, and a peephole pass fusing redundant select/filter chains.
//
// Both passes treat the input graph as immutable and return fresh node/edge
// slices. The fusion pass runs a single forward sweep in topological order,
// but all adjacency lookups are made against the live working copy rather
// than a stale index: once a node is fused away, its former child sees the
// surviving node as its parent within the same sweep. Linear chains of any
// length therefore collapse in one invocation; callers do not need to
// re-invoke the pass to reach a fixpoint.
package optimizer

import (
	"strings"

	"github.com/pipeweld/pipeweld/internal/graph"
	"github.com/pipeweld/pipeweld/internal/ir"
)

// Optimize composes the two passes: prune dead nodes relative to targetID,
// then fuse redundant chains. An empty targetID skips pruning.
func Optimize(nodes []ir.Node, edges []ir.Edge, targetID string) ([]ir.Node, []ir.Edge) {
	n, e := PruneDead(nodes, edges, targetID)
	return Fuse(n, e)
}

// PruneDead keeps only nodes that are ancestors of targetID (including
// targetID itself) and edges whose both endpoints survive. An empty targetID
// is the identity.
func PruneDead(nodes []ir.Node, edges []ir.Edge, targetID string) ([]ir.Node, []ir.Edge) {
	if targetID == "" {
		return ir.CloneNodes(nodes), ir.CloneEdges(edges)
	}

	keep := graph.Ancestors(targetID, edges)
	var outNodes []ir.Node
	for _, n := range nodes {
		if keep[n.ID] {
			outNodes = append(outNodes, n)
		}
	}
	var outEdges []ir.Edge
	for _, e := range edges {
		if keep[e.Source] && keep[e.Target] {
			outEdges = append(outEdges, e)
		}
	}
	return outNodes, outEdges
}

// rewrite is a mutable working copy of a graph during fusion.
type rewrite struct {
	byID  map[string]ir.Node
	edges []ir.Edge
}

func (w *rewrite) parentsOf(id string) []string {
	var out []string
	for _, e := range w.edges {
		if e.Target == id {
			out = append(out, e.Source)
		}
	}
	return out
}

func (w *rewrite) childrenOf(id string) []string {
	var out []string
	for _, e := range w.edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// spliceable reports whether id has exactly one incoming and one outgoing
// edge in the live edge set. Removal is only valid under this precondition,
// and it is re-checked at the moment of each removal, never against a stale
// index. A fused node with fan-out (or no child at all) is not spliceable,
// and the caller must then skip the rule entirely rather than overwrite the
// surviving node's payload first.
func (w *rewrite) spliceable(id string) bool {
	return len(w.parentsOf(id)) == 1 && len(w.childrenOf(id)) == 1
}

// splice removes id and reconnects its single parent to its single child.
// Callers must have checked spliceable first.
func (w *rewrite) splice(id string) {
	parent := w.parentsOf(id)[0]
	child := w.childrenOf(id)[0]
	kept := w.edges[:0]
	for _, e := range w.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	w.edges = append(kept, ir.Edge{Source: parent, Target: child})
	delete(w.byID, id)
}

// Fuse applies three peephole rules in one forward sweep over the graph in
// topological order:
//
//  1. select-select fusion: adjacent selects collapse to one. Both-explicit
//     lists compose by intersection preserving the parent's order; an empty
//     intersection degenerates to the wildcard "*" (selecting nothing
//     degenerates to selecting everything - a preserved quirk, see the
//     package tests).
//  2. filter-filter fusion: predicates combine as "(P) AND (N)"; an empty
//     side yields the other side unchanged.
//  3. identity-select elimination: a wildcard/empty select with one parent
//     and one child is spliced out.
//
// Each rule removes a node only when the splice precondition (exactly one
// incoming and one outgoing edge, checked against the live edge set) holds;
// otherwise the rule is skipped without touching either node's payload.
//
// Output nodes are listed in topological order; edges are deduplicated by
// (source, target).
func Fuse(nodes []ir.Node, edges []ir.Edge) ([]ir.Node, []ir.Edge) {
	order, _ := graph.TopoOrder(nodes, edges)

	w := &rewrite{
		byID:  make(map[string]ir.Node, len(nodes)),
		edges: ir.CloneEdges(edges),
	}
	for _, n := range nodes {
		w.byID[n.ID] = n
	}

	for _, nid := range order {
		fuseSelectSelect(w, nid)
		fuseFilterFilter(w, nid)
		elideIdentitySelect(w, nid)
	}

	var outNodes []ir.Node
	for _, nid := range order {
		if n, ok := w.byID[nid]; ok {
			outNodes = append(outNodes, n)
		}
	}

	var outEdges []ir.Edge
	seen := make(map[ir.Edge]bool, len(w.edges))
	for _, e := range w.edges {
		if seen[e] {
			continue
		}
		if _, ok := w.byID[e.Source]; !ok {
			continue
		}
		if _, ok := w.byID[e.Target]; !ok {
			continue
		}
		seen[e] = true
		outEdges = append(outEdges, e)
	}
	return outNodes, outEdges
}

// normColumns trims a select column spec, treating empty as the wildcard.
func normColumns(p ir.Payload) string {
	cols := strings.TrimSpace(p.Columns)
	if cols == "" {
		return "*"
	}
	return cols
}

func fuseSelectSelect(w *rewrite, nid string) {
	n, ok := w.byID[nid]
	if !ok || n.NormalizedKind() != ir.KindSelect {
		return
	}
	parents := w.parentsOf(nid)
	if len(parents) != 1 {
		return
	}
	parent, ok := w.byID[parents[0]]
	if !ok || parent.NormalizedKind() != ir.KindSelect {
		return
	}

	colsP := normColumns(parent.Payload)
	colsN := normColumns(n.Payload)

	switch {
	case colsP == "*" && colsN != "*":
		// Parent is a no-op projection; the child's explicit list wins.
		if w.spliceable(parent.ID) {
			w.splice(parent.ID)
		}
	case colsP != "*" && colsN == "*":
		if w.spliceable(nid) {
			w.splice(nid)
		}
	case colsP != "*" && colsN != "*":
		if !w.spliceable(nid) {
			// Fan-out or terminal child: merging would orphan consumers of
			// the intermediate projection. Skip without rewriting parent.
			return
		}
		inN := make(map[string]bool)
		for _, c := range ir.SplitList(colsN) {
			inN[c] = true
		}
		var composed []string
		for _, c := range ir.SplitList(colsP) {
			if inN[c] {
				composed = append(composed, c)
			}
		}
		merged := "*"
		if len(composed) > 0 {
			merged = strings.Join(composed, ",")
		}
		parent.Payload.Columns = merged
		w.byID[parent.ID] = parent
		w.splice(nid)
	}
}

func fuseFilterFilter(w *rewrite, nid string) {
	n, ok := w.byID[nid]
	if !ok || n.NormalizedKind() != ir.KindFilter {
		return
	}
	parents := w.parentsOf(nid)
	if len(parents) != 1 {
		return
	}
	parent, ok := w.byID[parents[0]]
	if !ok || parent.NormalizedKind() != ir.KindFilter {
		return
	}
	if !w.spliceable(nid) {
		return
	}

	exprP := strings.TrimSpace(parent.Payload.Expr)
	exprN := strings.TrimSpace(n.Payload.Expr)
	var combined string
	switch {
	case exprP == "":
		combined = exprN
	case exprN == "":
		combined = exprP
	default:
		combined = "(" + exprP + ") AND (" + exprN + ")"
	}
	parent.Payload.Expr = combined
	w.byID[parent.ID] = parent
	w.splice(nid)
}

func elideIdentitySelect(w *rewrite, nid string) {
	n, ok := w.byID[nid]
	if !ok || n.NormalizedKind() != ir.KindSelect {
		return
	}
	if normColumns(n.Payload) != "*" {
		return
	}
	if w.spliceable(nid) {
		w.splice(nid)
	}
}
