package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeweld/pipeweld/internal/graph"
	"github.com/pipeweld/pipeweld/internal/ir"
)

func load(id string) ir.Node {
	return ir.Node{ID: id, Kind: ir.KindLoad, Payload: ir.Payload{Path: "in.csv"}}
}

func sel(id, cols string) ir.Node {
	return ir.Node{ID: id, Kind: ir.KindSelect, Payload: ir.Payload{Columns: cols}}
}

func filter(id, expr string) ir.Node {
	return ir.Node{ID: id, Kind: ir.KindFilter, Payload: ir.Payload{Expr: expr}}
}

func sink(id string) ir.Node {
	return ir.Node{ID: id, Kind: ir.KindWrite, Payload: ir.Payload{Path: "out.csv"}}
}

func chain(ids ...string) []ir.Edge {
	var out []ir.Edge
	for i := 0; i+1 < len(ids); i++ {
		out = append(out, ir.Edge{Source: ids[i], Target: ids[i+1]})
	}
	return out
}

func nodeByID(t *testing.T, nodes []ir.Node, id string) ir.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found in %v", id, nodes)
	return ir.Node{}
}

func hasNode(nodes []ir.Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func TestPruneDead_KeepsAncestorsOnly(t *testing.T) {
	nodes := []ir.Node{load("src"), filter("f", "x>1"), sel("s", "a"), sink("out")}
	edges := []ir.Edge{
		{Source: "src", Target: "f"},
		{Source: "f", Target: "s"},
		{Source: "f", Target: "out"},
	}

	outNodes, outEdges := PruneDead(nodes, edges, "s")

	assert.True(t, hasNode(outNodes, "src"))
	assert.True(t, hasNode(outNodes, "f"))
	assert.True(t, hasNode(outNodes, "s"))
	assert.False(t, hasNode(outNodes, "out"))

	keep := graph.Ancestors("s", edges)
	for _, e := range outEdges {
		assert.True(t, keep[e.Source], "edge source %s outside ancestor set", e.Source)
		assert.True(t, keep[e.Target], "edge target %s outside ancestor set", e.Target)
	}
}

func TestPruneDead_EmptyTargetIsIdentity(t *testing.T) {
	nodes := []ir.Node{load("src"), sink("out")}
	edges := chain("src", "out")

	outNodes, outEdges := PruneDead(nodes, edges, "")
	assert.Equal(t, nodes, outNodes)
	assert.Equal(t, edges, outEdges)
}

func TestFuse_SelectWildcardThenExplicit(t *testing.T) {
	nodes := []ir.Node{load("src"), sel("p", "*"), sel("n", "a,b"), sink("out")}
	edges := chain("src", "p", "n", "out")

	outNodes, outEdges := Fuse(nodes, edges)

	require.False(t, hasNode(outNodes, "p"), "wildcard parent should be dropped")
	assert.Equal(t, "a,b", nodeByID(t, outNodes, "n").Payload.Columns)
	assert.Contains(t, outEdges, ir.Edge{Source: "src", Target: "n"})
}

func TestFuse_SelectExplicitThenWildcard(t *testing.T) {
	nodes := []ir.Node{load("src"), sel("p", "a,b"), sel("n", "*"), sink("out")}
	edges := chain("src", "p", "n", "out")

	outNodes, outEdges := Fuse(nodes, edges)

	require.False(t, hasNode(outNodes, "n"), "wildcard child should be dropped")
	assert.Equal(t, "a,b", nodeByID(t, outNodes, "p").Payload.Columns)
	assert.Contains(t, outEdges, ir.Edge{Source: "p", Target: "out"})
}

func TestFuse_SelectBothExplicitIntersects(t *testing.T) {
	nodes := []ir.Node{load("src"), sel("p", "c,a,b"), sel("n", "a,c"), sink("out")}
	edges := chain("src", "p", "n", "out")

	outNodes, _ := Fuse(nodes, edges)

	require.False(t, hasNode(outNodes, "n"))
	// Intersection preserves the parent's order.
	assert.Equal(t, "c,a", nodeByID(t, outNodes, "p").Payload.Columns)
}

func TestFuse_SelectEmptyIntersectionDegeneratesToWildcard(t *testing.T) {
	// Selecting nothing degenerates to selecting everything. Preserved quirk.
	nodes := []ir.Node{load("src"), sel("p", "a,b"), sel("n", "c,d"), sink("out")}
	edges := chain("src", "p", "n", "out")

	outNodes, _ := Fuse(nodes, edges)

	require.False(t, hasNode(outNodes, "n"))
	assert.Equal(t, "*", nodeByID(t, outNodes, "p").Payload.Columns)
}

func TestFuse_FilterFilterCombines(t *testing.T) {
	nodes := []ir.Node{load("src"), filter("p", "x>1"), filter("n", "y<5"), sink("out")}
	edges := chain("src", "p", "n", "out")

	outNodes, outEdges := Fuse(nodes, edges)

	require.False(t, hasNode(outNodes, "n"))
	assert.Equal(t, "(x>1) AND (y<5)", nodeByID(t, outNodes, "p").Payload.Expr)
	assert.Contains(t, outEdges, ir.Edge{Source: "p", Target: "out"})
}

func TestFuse_FilterFilterEmptySides(t *testing.T) {
	testCases := []struct {
		name   string
		exprP  string
		exprN  string
		merged string
	}{
		{"both empty", "", "", ""},
		{"parent empty", "", "y<5", "y<5"},
		{"child empty", "x>1", "", "x>1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nodes := []ir.Node{load("src"), filter("p", tc.exprP), filter("n", tc.exprN), sink("out")}
			edges := chain("src", "p", "n", "out")

			outNodes, _ := Fuse(nodes, edges)
			require.False(t, hasNode(outNodes, "n"))
			assert.Equal(t, tc.merged, nodeByID(t, outNodes, "p").Payload.Expr)
		})
	}
}

func TestFuse_IdentitySelectSpliced(t *testing.T) {
	nodes := []ir.Node{load("src"), sel("noop", "*"), sink("out")}
	edges := chain("src", "noop", "out")

	outNodes, outEdges := Fuse(nodes, edges)

	assert.False(t, hasNode(outNodes, "noop"))
	assert.Contains(t, outEdges, ir.Edge{Source: "src", Target: "out"})
}

// Splicing appends the reconnecting edge at the end of the edge list, so
// eliding an identity select feeding a join swaps that join's left and
// right inputs. A preserved quirk: edge-list order decides join sides, and
// downstream consumers must not assume optimization keeps them stable.
func TestFuse_SpliceOnJoinInputReordersParents(t *testing.T) {
	nodes := []ir.Node{
		load("a"),
		sel("noop", "*"),
		load("b"),
		{ID: "join", Kind: ir.KindJoin, Payload: ir.Payload{How: "inner"}},
	}
	edges := []ir.Edge{
		{Source: "a", Target: "noop"},
		{Source: "noop", Target: "join"},
		{Source: "b", Target: "join"},
	}

	outNodes, outEdges := Fuse(nodes, edges)

	assert.False(t, hasNode(outNodes, "noop"))
	parents := graph.Parents(outNodes, outEdges)
	assert.Equal(t, []string{"b", "a"}, parents["join"])
}

// Regression: a fused node whose result feeds multiple consumers must not be
// merged. The splice precondition is checked against the live edge set before
// any payload is assigned, so the skipped rule leaves both nodes untouched.
func TestFuse_FanOutSkipsRuleWithoutPayloadCorruption(t *testing.T) {
	nodes := []ir.Node{
		load("src"),
		filter("p", "x>1"),
		filter("n", "y<5"),
		sink("out1"),
		sink("out2"),
	}
	edges := []ir.Edge{
		{Source: "src", Target: "p"},
		{Source: "p", Target: "n"},
		{Source: "n", Target: "out1"},
		{Source: "n", Target: "out2"},
	}

	outNodes, outEdges := Fuse(nodes, edges)

	require.True(t, hasNode(outNodes, "n"), "fan-out node must survive")
	assert.Equal(t, "x>1", nodeByID(t, outNodes, "p").Payload.Expr,
		"parent payload must not be rewritten when splice is skipped")
	assert.Equal(t, "y<5", nodeByID(t, outNodes, "n").Payload.Expr)
	assert.Len(t, outEdges, 4)
}

// Same guard for a fused node with no child at all: without a downstream
// consumer the splice precondition fails and the rule must not fire.
func TestFuse_TerminalChildSkipsRule(t *testing.T) {
	nodes := []ir.Node{load("src"), sel("p", "a,b"), sel("n", "b,c")}
	edges := chain("src", "p", "n")

	outNodes, _ := Fuse(nodes, edges)

	assert.True(t, hasNode(outNodes, "n"))
	assert.Equal(t, "a,b", nodeByID(t, outNodes, "p").Payload.Columns)
}

func TestFuse_DeduplicatesEdges(t *testing.T) {
	nodes := []ir.Node{load("src"), sink("out")}
	edges := []ir.Edge{
		{Source: "src", Target: "out"},
		{Source: "src", Target: "out"},
	}

	_, outEdges := Fuse(nodes, edges)
	assert.Len(t, outEdges, 1)
}

// Adjacency lookups run against the live working copy, so a linear chain of
// any length collapses in one sweep: after f2 fuses into f1, f3 sees f1 as
// its parent within the same pass.
func TestFuse_ChainCollapsesInOneSweep(t *testing.T) {
	nodes := []ir.Node{
		load("src"),
		filter("f1", "a>1"), filter("f2", "b>2"), filter("f3", "c>3"),
		sink("out"),
	}
	edges := chain("src", "f1", "f2", "f3", "out")

	outNodes, _ := Fuse(nodes, edges)
	assert.Len(t, outNodes, 3)
	assert.Equal(t, "((a>1) AND (b>2)) AND (c>3)", nodeByID(t, outNodes, "f1").Payload.Expr)
}

func TestOptimize_PruneThenFuse(t *testing.T) {
	nodes := []ir.Node{
		load("src"),
		sel("p", "*"), sel("n", "a,b"),
		sink("dead"),
		sink("out"),
	}
	edges := []ir.Edge{
		{Source: "src", Target: "p"},
		{Source: "p", Target: "n"},
		{Source: "n", Target: "out"},
		{Source: "src", Target: "dead"},
	}

	outNodes, _ := Optimize(nodes, edges, "out")

	assert.False(t, hasNode(outNodes, "dead"))
	assert.False(t, hasNode(outNodes, "p"))
	assert.True(t, hasNode(outNodes, "n"))
}

func TestOptimize_NodesInTopoOrder(t *testing.T) {
	nodes := []ir.Node{sink("out"), load("src"), filter("f", "x>0")}
	edges := []ir.Edge{
		{Source: "src", Target: "f"},
		{Source: "f", Target: "out"},
	}

	outNodes, _ := Optimize(nodes, edges, "")
	ids := make([]string, len(outNodes))
	for i, n := range outNodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"src", "f", "out"}, ids)
}
