// Package interp executes a pipeline graph directly, without generating
// program text. It is the reference the three lowering backends are
// validated against: per-kind semantics here and in codegen must agree.
//
// Relational kinds evaluate as SQL over an in-memory engine session; the
// source, sample, and sink kinds operate on tables directly. Node failures
// never abort a run. A failing node records a diagnostic and falls back per
// kind: filter returns its input unchanged, derive keeps the input rows and
// nulls the new column, everything else yields an empty table. The run then
// continues downstream.
package interp

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pipeweld/pipeweld/internal/engine"
	"github.com/pipeweld/pipeweld/internal/graph"
	"github.com/pipeweld/pipeweld/internal/ir"
	"github.com/pipeweld/pipeweld/internal/tabular"
)

// Result is the outcome of one interpreter run: the table at the last node
// in topological order, plus per-node diagnostics keyed by node id.
type Result struct {
	Table      tabular.Table
	NodeErrors map[string]string
}

// Run executes the graph against a fresh engine session. When previewID is
// non-empty, execution is restricted to that node and its ancestors. The
// returned error covers engine setup only; node failures land in
// Result.NodeErrors.
func Run(nodes []ir.Node, edges []ir.Edge, previewID string) (Result, error) {
	nodes, edges = restrict(nodes, edges, previewID)

	sess, err := engine.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("interpreter engine: %w", err)
	}
	defer sess.Close()

	r := &run{
		sess:    sess,
		byID:    make(map[string]ir.Node, len(nodes)),
		parents: graph.Parents(nodes, edges),
		frames:  make(map[string]tabular.Table, len(nodes)),
		aliases: make(map[string]string, len(nodes)),
		errs:    make(map[string]string),
	}
	for _, n := range nodes {
		r.byID[n.ID] = n
	}

	order, _ := graph.TopoOrder(nodes, edges)
	for _, nid := range order {
		n := r.byID[nid]
		out, err := r.eval(n)
		if err != nil {
			out = r.fallback(n, err)
		}
		r.frames[nid] = out
	}

	res := Result{Table: tabular.Empty(), NodeErrors: r.errs}
	if len(order) > 0 {
		res.Table = r.frames[order[len(order)-1]]
	}
	return res, nil
}

// restrict cuts the graph down to previewID and its ancestors. Edges with an
// endpoint outside the kept set are dropped with it.
func restrict(nodes []ir.Node, edges []ir.Edge, previewID string) ([]ir.Node, []ir.Edge) {
	if previewID == "" {
		return nodes, edges
	}
	keep := graph.Ancestors(previewID, edges)
	var kn []ir.Node
	for _, n := range nodes {
		if keep[n.ID] {
			kn = append(kn, n)
		}
	}
	var ke []ir.Edge
	for _, e := range edges {
		if keep[e.Source] && keep[e.Target] {
			ke = append(ke, e)
		}
	}
	return kn, ke
}

type run struct {
	sess    *engine.Session
	byID    map[string]ir.Node
	parents map[string][]string
	frames  map[string]tabular.Table
	aliases map[string]string
	errs    map[string]string
}

// parent returns the i-th input table, empty when the edge is missing or the
// parent itself produced nothing.
func (r *run) parent(id string, i int) tabular.Table {
	ps := r.parents[id]
	if i >= len(ps) {
		return tabular.Empty()
	}
	return r.frames[ps[i]]
}

// alias materializes a node's table into the session once and reuses the
// alias on later references.
func (r *run) alias(id string, i int) (string, error) {
	ps := r.parents[id]
	if i >= len(ps) {
		return "", fmt.Errorf("missing input %d", i+1)
	}
	pid := ps[i]
	if a, ok := r.aliases[pid]; ok {
		return a, nil
	}
	a, err := r.sess.Materialize(r.frames[pid])
	if err != nil {
		return "", err
	}
	r.aliases[pid] = a
	return a, nil
}

func (r *run) fallback(n ir.Node, err error) tabular.Table {
	r.errs[n.ID] = fmt.Sprintf("%s: %s", n.Kind, err)
	switch n.NormalizedKind() {
	case ir.KindFilter:
		return r.parent(n.ID, 0)
	case ir.KindDerive:
		p := r.parent(n.ID, 0)
		return withNullColumn(p, ir.OrDefault(n.Payload.NewCol, "new_column"))
	default:
		return tabular.Empty()
	}
}

func (r *run) eval(n ir.Node) (tabular.Table, error) {
	switch n.NormalizedKind() {
	case ir.KindLoad:
		return r.evalLoad(n)
	case ir.KindSelect:
		return r.evalSelect(n)
	case ir.KindFilter:
		return r.evalFilter(n)
	case ir.KindAggregate:
		return r.evalAggregate(n)
	case ir.KindDerive:
		return r.evalDerive(n)
	case ir.KindSort:
		return r.evalSort(n)
	case ir.KindSample:
		return r.evalSample(n)
	case ir.KindJoin:
		return r.evalJoin(n)
	case ir.KindWrite:
		return r.evalWrite(n)
	default:
		// Copy-through, same as the lowerers' placeholder emission.
		if len(r.parents[n.ID]) > 0 {
			return r.parent(n.ID, 0), nil
		}
		return tabular.Empty(), nil
	}
}

func (r *run) evalLoad(n ir.Node) (tabular.Table, error) {
	if strings.TrimSpace(n.Payload.Content) != "" {
		return tabular.ReadCSVString(n.Payload.Content)
	}
	path := strings.TrimSpace(n.Payload.Path)
	if path == "" {
		return tabular.Table{}, fmt.Errorf("source %q has no inline data or readable path", ir.OrDefault(n.Label, n.ID))
	}
	return tabular.ReadCSVFile(path)
}

func (r *run) evalSelect(n ir.Node) (tabular.Table, error) {
	cols := strings.TrimSpace(n.Payload.Columns)
	if cols == "" || cols == "*" {
		return r.parent(n.ID, 0), nil
	}
	a, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}
	quoted := ir.SplitList(cols)
	for i, c := range quoted {
		quoted[i] = engine.QuoteIdent(c)
	}
	return r.sess.Eval(fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), a))
}

func (r *run) evalFilter(n ir.Node) (tabular.Table, error) {
	expr := strings.TrimSpace(n.Payload.Expr)
	if expr == "" {
		return r.parent(n.ID, 0), nil
	}
	a, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}
	return r.sess.Eval(fmt.Sprintf("SELECT * FROM %s WHERE %s", a, expr))
}

// evalAggregate groups measures per column in first-appearance order, the
// same flattened layout the pandas lowerer produces, so output column order
// agrees between interpreter and backend.
func (r *run) evalAggregate(n ir.Node) (tabular.Table, error) {
	a, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}

	by := ir.SplitList(n.Payload.GroupBy)
	measures := ir.ValidMeasures(n.Payload.Measures)

	var colOrder []string
	perCol := make(map[string][]ir.Measure)
	for _, m := range measures {
		if _, seen := perCol[m.Col]; !seen {
			colOrder = append(colOrder, m.Col)
		}
		perCol[m.Col] = append(perCol[m.Col], m)
	}

	var selectParts []string
	for _, c := range by {
		selectParts = append(selectParts, engine.QuoteIdent(c))
	}
	for _, c := range colOrder {
		for _, m := range perCol[c] {
			selectParts = append(selectParts, fmt.Sprintf("%s(%s) AS %s",
				m.Op, engine.QuoteIdent(m.Col), engine.QuoteIdent(ir.MeasureName(m))))
		}
	}
	if len(selectParts) == 0 {
		return r.parent(n.ID, 0), nil
	}

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectParts, ", "), a)
	if len(by) > 0 {
		quoted := make([]string, len(by))
		for i, c := range by {
			quoted[i] = engine.QuoteIdent(c)
		}
		q += " GROUP BY " + strings.Join(quoted, ", ")
	}
	return r.sess.Eval(q)
}

func (r *run) evalDerive(n ir.Node) (tabular.Table, error) {
	newCol := ir.OrDefault(n.Payload.NewCol, "new_column")
	expr := ir.OrDefault(n.Payload.Expr, "0")
	a, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}
	return r.sess.Eval(fmt.Sprintf("SELECT *, (%s) AS %s FROM %s",
		expr, engine.QuoteIdent(newCol), a))
}

func (r *run) evalSort(n ir.Node) (tabular.Table, error) {
	keys := ir.ParseSortSpec(n.Payload.SortSpec)
	if len(keys) == 0 {
		return r.parent(n.ID, 0), nil
	}
	a, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}
	ob := make([]string, len(keys))
	for i, k := range keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		ob[i] = engine.QuoteIdent(k.Col) + " " + dir
	}
	return r.sess.Eval(fmt.Sprintf("SELECT * FROM %s ORDER BY %s", a, strings.Join(ob, ", ")))
}

func (r *run) evalSample(n ir.Node) (tabular.Table, error) {
	p := r.parent(n.ID, 0)
	if p.IsEmpty() {
		// Sampling nothing yields nothing; not a node failure.
		return tabular.Empty(), nil
	}
	out := tabular.Table{Columns: p.Columns}
	if n.Payload.Mode == ir.SampleFraction {
		frac := n.Payload.Frac
		if frac == 0 {
			frac = 0.1
		}
		for _, row := range p.Rows {
			if rand.Float64() < frac {
				out.Rows = append(out.Rows, row)
			}
		}
		return out, nil
	}
	count := n.Payload.N
	if count == 0 {
		count = 100
	}
	if count > len(p.Rows) {
		count = len(p.Rows)
	}
	for _, i := range rand.Perm(len(p.Rows))[:count] {
		out.Rows = append(out.Rows, p.Rows[i])
	}
	return out, nil
}

func (r *run) evalJoin(n ir.Node) (tabular.Table, error) {
	la, err := r.alias(n.ID, 0)
	if err != nil {
		return tabular.Table{}, err
	}
	ra, err := r.alias(n.ID, 1)
	if err != nil {
		return tabular.Table{}, err
	}
	how := ir.SQLJoinKeyword(n.Payload.How)
	left, right := ir.ZipJoinKeys(n.Payload.LeftKeys, n.Payload.RightKeys)
	onParts := make([]string, len(left))
	for i := range left {
		onParts[i] = fmt.Sprintf("%s.%s = %s.%s",
			la, engine.QuoteIdent(left[i]), ra, engine.QuoteIdent(right[i]))
	}
	return r.sess.Eval(fmt.Sprintf("SELECT * FROM %s %s JOIN %s ON %s",
		la, how, ra, strings.Join(onParts, " AND ")))
}

func (r *run) evalWrite(n ir.Node) (tabular.Table, error) {
	p := r.parent(n.ID, 0)
	path := ir.OrDefault(n.Payload.Path, "out.csv")
	if err := tabular.WriteCSVFile(path, p); err != nil {
		return tabular.Table{}, err
	}
	return p, nil
}

func withNullColumn(t tabular.Table, name string) tabular.Table {
	out := tabular.Table{Columns: append(append([]string{}, t.Columns...), name)}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, append(append([]any{}, row...), nil))
	}
	return out
}
