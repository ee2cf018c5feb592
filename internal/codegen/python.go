package codegen

import (
	"fmt"
	"strings"

	"github.com/pipeweld/pipeweld/internal/ir"
)

// GenPython lowers the graph to an eager pandas program. The program binds
// one DataFrame per node and ends with a `result` binding for the final
// topological node, which the runtime harness serializes back to CSV.
func GenPython(nodes []ir.Node, edges []ir.Edge) string {
	g := newGenContext(nodes, edges)

	var L []string
	L = append(L,
		"# Generated by pipeweld (pandas)",
		"import pandas as pd",
		"")

	for _, nid := range g.order {
		n := g.byID[nid]
		v := g.names[nid]
		ps := g.parentNames(nid)

		switch n.NormalizedKind() {
		case ir.KindLoad:
			path := ir.OrDefault(n.Payload.Path, "uploaded.csv")
			L = append(L,
				fmt.Sprintf("# Source: %s", ir.OrDefault(n.Label, "CSV")),
				fmt.Sprintf("%s = pd.read_csv(%s)", v, pyRawPath(path)),
				"")

		case ir.KindSelect:
			cols := strings.TrimSpace(n.Payload.Columns)
			if cols == "" || cols == "*" {
				L = append(L, fmt.Sprintf("%s = %s.copy()", v, ps[0]), "")
			} else {
				L = append(L,
					fmt.Sprintf("%s = %s[%s].copy()", v, ps[0], pyList(ir.SplitList(cols))),
					"")
			}

		case ir.KindFilter:
			L = append(L,
				fmt.Sprintf("%s = %s.query(%s)", v, ps[0], pyString(n.Payload.Expr)),
				"")

		case ir.KindAggregate:
			L = append(L, genPythonAggregate(v, ps[0], n.Payload)...)

		case ir.KindDerive:
			newCol := ir.OrDefault(n.Payload.NewCol, "new_column")
			expr := ir.OrDefault(n.Payload.Expr, "0")
			L = append(L,
				fmt.Sprintf("%s = %s.copy()", v, ps[0]),
				fmt.Sprintf(`%s[%s] = %s.eval(%s, engine="python")`, v, pyString(newCol), v, pyString(expr)),
				"")

		case ir.KindSort:
			keys := ir.ParseSortSpec(n.Payload.SortSpec)
			if len(keys) == 0 {
				L = append(L, fmt.Sprintf("%s = %s.copy()", v, ps[0]), "")
			} else {
				cols := make([]string, len(keys))
				asc := make([]string, len(keys))
				for i, k := range keys {
					cols[i] = k.Col
					if k.Desc {
						asc[i] = "False"
					} else {
						asc[i] = "True"
					}
				}
				L = append(L,
					fmt.Sprintf("%s = %s.sort_values(%s, ascending=[%s])",
						v, ps[0], pyList(cols), strings.Join(asc, ", ")),
					"")
			}

		case ir.KindSample:
			if n.Payload.Mode == ir.SampleFraction {
				frac := n.Payload.Frac
				if frac == 0 {
					frac = 0.1
				}
				L = append(L,
					fmt.Sprintf("%s = %s.sample(frac=%g, random_state=None)", v, ps[0], frac),
					"")
			} else {
				count := n.Payload.N
				if count == 0 {
					count = 100
				}
				L = append(L,
					fmt.Sprintf("%s = %s.sample(n=min(%d, len(%s)), random_state=None)",
						v, ps[0], count, ps[0]),
					"")
			}

		case ir.KindJoin:
			how := ir.OrDefault(n.Payload.How, "inner")
			left, right := ir.ZipJoinKeys(n.Payload.LeftKeys, n.Payload.RightKeys)
			L = append(L,
				fmt.Sprintf("%s = %s.merge(%s, how=%s, left_on=%s, right_on=%s)",
					v, ps[0], ps[1], pyString(how), pyKeyArg(left), pyKeyArg(right)),
				"")

		case ir.KindWrite:
			path := ir.OrDefault(n.Payload.Path, "out.csv")
			L = append(L,
				fmt.Sprintf("%s.to_csv(%s, index=False)", ps[0], pyRawPath(path)),
				fmt.Sprintf("# wrote: %s", path),
				fmt.Sprintf("%s = %s", v, ps[0]),
				"")

		default:
			L = append(L, fmt.Sprintf("# TODO: %s", n.Kind), "")
		}
	}

	if len(g.order) > 0 {
		L = append(L, fmt.Sprintf("result = %s", g.names[g.order[len(g.order)-1]]), "")
	}
	return strings.Join(L, "\n")
}

// pyKeyArg renders a join key list the way pandas expects: a scalar string
// for a single key, a list literal for several.
func pyKeyArg(keys []string) string {
	if len(keys) == 1 {
		return pyString(keys[0])
	}
	return pyList(keys)
}

// genPythonAggregate emits the grouped-aggregation block. pandas flattens a
// grouped agg into "col_op" column names; the rename map rewrites those to
// the canonical "op_col" (or the explicit alias), keeping column naming
// identical across all backends.
func genPythonAggregate(v, parent string, p ir.Payload) []string {
	by := ir.SplitList(p.GroupBy)
	measures := ir.ValidMeasures(p.Measures)

	// Group ops per column, preserving first-appearance order.
	var colOrder []string
	ops := make(map[string][]string)
	rename := make([][2]string, 0, len(measures))
	for _, m := range measures {
		if _, seen := ops[m.Col]; !seen {
			colOrder = append(colOrder, m.Col)
		}
		ops[m.Col] = append(ops[m.Col], m.Op)
		rename = append(rename, [2]string{m.Col + "_" + m.Op, ir.MeasureName(m)})
	}

	aggParts := make([]string, len(colOrder))
	for i, col := range colOrder {
		quoted := make([]string, len(ops[col]))
		for j, op := range ops[col] {
			quoted[j] = "'" + op + "'"
		}
		aggParts[i] = fmt.Sprintf("'%s': [%s]", col, strings.Join(quoted, ", "))
	}
	aggObj := strings.Join(aggParts, ", ")

	tmp := v + "_tmp"
	var L []string
	if len(by) > 0 {
		L = append(L, fmt.Sprintf("%s = %s.groupby(%s).agg({%s}).reset_index()",
			tmp, parent, pyList(by), aggObj))
	} else {
		L = append(L, fmt.Sprintf("%s = %s.agg({%s})", tmp, parent, aggObj))
	}
	L = append(L,
		fmt.Sprintf("%s = %s.copy()", v, tmp),
		fmt.Sprintf("%s.columns = ['_'.join([str(c) for c in col]).strip('_') if isinstance(col, tuple) else col for col in %s.columns]", v, v))
	for _, r := range rename {
		L = append(L, fmt.Sprintf("%s.rename(columns={'%s': '%s'}, inplace=True)", v, r[0], r[1]))
	}
	L = append(L, "")
	return L
}
