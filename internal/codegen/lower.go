// Package codegen lowers a pipeline graph into program text for three
// independent execution backends: pandas (eager, single-process), DuckDB SQL
// (single-node, columnar), and PySpark (cluster-capable, lazy).
//
// Each lowerer walks the graph in topological order and emits one statement
// or clause per node, referencing parent results by the shared identifier
// namespace from AssignNames. The lowerers return text only; nothing is
// executed here.
package codegen

import (
	"fmt"
	"strings"

	"github.com/pipeweld/pipeweld/internal/graph"
	"github.com/pipeweld/pipeweld/internal/ir"
)

// Language selects a lowering target.
type Language string

const (
	LangPython Language = "python"
	LangSQL    Language = "sql"
	LangSpark  Language = "spark"
)

// ErrUnsupportedLanguage reports a target outside the three known backends.
type ErrUnsupportedLanguage struct {
	Lang Language
}

func (e *ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Lang)
}

// Lower translates the graph into program text for the given backend.
func Lower(nodes []ir.Node, edges []ir.Edge, lang Language) (string, error) {
	switch Language(strings.ToLower(string(lang))) {
	case LangPython:
		return GenPython(nodes, edges), nil
	case LangSQL:
		return GenSQL(nodes, edges), nil
	case LangSpark:
		return GenSpark(nodes, edges), nil
	default:
		return "", &ErrUnsupportedLanguage{Lang: lang}
	}
}

// genContext is the shared walk state every lowerer derives from the graph.
type genContext struct {
	order   []string
	byID    map[string]ir.Node
	parents map[string][]string
	names   map[string]string
}

func newGenContext(nodes []ir.Node, edges []ir.Edge) genContext {
	order, _ := graph.TopoOrder(nodes, edges)
	byID := make(map[string]ir.Node, len(nodes))
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		labels[n.ID] = n.Label
	}
	return genContext{
		order:   order,
		byID:    byID,
		parents: graph.Parents(nodes, edges),
		names:   AssignNames(order, labels),
	}
}

// parentNames resolves a node's parents to their generated identifiers, in
// edge-list order (left join input first).
func (g genContext) parentNames(id string) []string {
	ps := g.parents[id]
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = g.names[p]
	}
	return out
}

