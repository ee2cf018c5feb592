package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeweld/pipeweld/internal/ir"
)

const validJSON = `{
  "nodes": [
    {"id": "load", "label": "Load Users", "kind": "source.load", "payload": {"path": "users.csv"}},
    {"id": "adults", "label": "Adults", "kind": "transform.filter", "payload": {"expr": "age >= 18"}}
  ],
  "edges": [
    {"source": "load", "target": "adults"}
  ]
}`

func TestLoadJSON(t *testing.T) {
	nodes, edges, err := LoadJSON([]byte(validJSON))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "load", nodes[0].ID)
	assert.Equal(t, ir.KindLoad, nodes[0].Kind)
	assert.Equal(t, "users.csv", nodes[0].Payload.Path)
	assert.Equal(t, "age >= 18", nodes[1].Payload.Expr)
	assert.Equal(t, []ir.Edge{{Source: "load", Target: "adults"}}, edges)
}

func TestLoadYAML(t *testing.T) {
	doc := `
nodes:
  - id: load
    label: Load Users
    kind: source.load
    payload:
      path: users.csv
  - id: agg
    label: Totals
    kind: transform.aggregate
    payload:
      group_by: city
      measures:
        - col: amount
          op: sum
          alias: total
edges:
  - source: load
    target: agg
`
	nodes, _, err := LoadYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "city", nodes[1].Payload.GroupBy)
	assert.Equal(t, []ir.Measure{{Col: "amount", Op: "sum", Alias: "total"}}, nodes[1].Payload.Measures)
}

func TestLoadFilePicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(validJSON), 0o644))
	nodes, _, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	yamlPath := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("nodes:\n  - id: a\n    kind: source.load\n"), 0o644))
	nodes, _, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestLoadJSONRejectsMissingID(t *testing.T) {
	doc := `{"nodes": [{"kind": "source.load"}]}`
	_, _, err := LoadJSON([]byte(doc))
	require.Error(t, err)
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadJSONRejectsBadSampleMode(t *testing.T) {
	doc := `{"nodes": [{"id": "s", "kind": "transform.sample", "payload": {"mode": "half"}}]}`
	_, _, err := LoadJSON([]byte(doc))
	require.Error(t, err)
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadJSONMeasureAliasReachesIR(t *testing.T) {
	doc := `{"nodes": [{"id": "agg", "kind": "transform.aggregate", "payload": {
	  "group_by": "city",
	  "measures": [{"col": "amount", "op": "sum", "alias": "total"}]
	}}]}`
	nodes, _, err := LoadJSON([]byte(doc))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "total", nodes[0].Payload.Measures[0].Alias)
}

func TestLoadJSONJoinHow(t *testing.T) {
	valid := `{"nodes": [{"id": "j", "kind": "transform.join", "payload": {"how": "outer"}}]}`
	nodes, _, err := LoadJSON([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, "outer", nodes[0].Payload.How)

	invalid := `{"nodes": [{"id": "j", "kind": "transform.join", "payload": {"how": "full"}}]}`
	_, _, err = LoadJSON([]byte(invalid))
	require.Error(t, err)
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadJSONRejectsMalformedInput(t *testing.T) {
	_, _, err := LoadJSON([]byte(`{"nodes": [`))
	require.Error(t, err)
}

func TestValidateDuplicateIDs(t *testing.T) {
	nodes := []ir.Node{
		{ID: "a", Kind: ir.KindLoad},
		{ID: "a", Kind: ir.KindLoad},
	}
	errs := Validate(nodes, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateNodeID, errs[0].Code)
}

func TestValidateEdgeEndpoints(t *testing.T) {
	nodes := []ir.Node{{ID: "a", Kind: ir.KindLoad}}
	edges := []ir.Edge{{Source: "a", Target: "ghost"}}
	errs := Validate(nodes, edges)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrUnknownEdgeEndpoint, errs[0].Code)
}

func TestValidateInputArity(t *testing.T) {
	nodes := []ir.Node{
		{ID: "load", Kind: ir.KindLoad},
		{ID: "join", Kind: ir.KindJoin},
	}
	edges := []ir.Edge{{Source: "load", Target: "join"}}

	errs := Validate(nodes, edges)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrWrongInputArity, errs[0].Code)
	assert.Contains(t, errs[0].Message, "requires 2 input(s), has 1")
}

func TestValidateUnknownKindRequiresOneInput(t *testing.T) {
	nodes := []ir.Node{
		{ID: "load", Kind: ir.KindLoad},
		{ID: "mystery", Kind: ir.Kind("transform.mystery")},
	}
	edges := []ir.Edge{{Source: "load", Target: "mystery"}}
	assert.Empty(t, Validate(nodes, edges))

	errs := Validate([]ir.Node{{ID: "orphan", Kind: ir.Kind("inspect.deepdive")}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrWrongInputArity, errs[0].Code)
	assert.Contains(t, errs[0].Message, "requires 1 input(s), has 0")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	nodes := []ir.Node{
		{ID: "", Kind: ir.KindLoad},
		{ID: "f", Kind: ir.KindFilter},
	}
	edges := []ir.Edge{{Source: "ghost", Target: "f"}}
	errs := Validate(nodes, edges)
	assert.GreaterOrEqual(t, len(errs), 2)
}

func TestValidateTarget(t *testing.T) {
	nodes := []ir.Node{{ID: "a", Kind: ir.KindLoad}}
	assert.NoError(t, ValidateTarget(nodes, ""))
	assert.NoError(t, ValidateTarget(nodes, "a"))

	err := ValidateTarget(nodes, "ghost")
	require.Error(t, err)
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrUnknownTargetNode, ge.Errors[0].Code)
}
