package codegen

import (
	"fmt"
	"strings"

	"github.com/pipeweld/pipeweld/internal/ir"
)

// GenSQL lowers the graph to a single DuckDB statement: one CTE per node,
// chained in topological order, with a final SELECT over the last node.
//
// The sink kind lowers to a passthrough CTE: a WITH chain cannot carry a
// COPY side effect, so the write happens only under the imperative backends
// and the interpreter. The differential signature is unaffected because the
// sink passes its input through in every backend.
func GenSQL(nodes []ir.Node, edges []ir.Edge) string {
	g := newGenContext(nodes, edges)

	parts := []string{"-- Generated by pipeweld (SQL, DuckDB-safe)"}
	var ctes []string

	for _, nid := range g.order {
		n := g.byID[nid]
		alias := g.names[nid]
		ps := g.parentNames(nid)

		switch n.NormalizedKind() {
		case ir.KindLoad:
			path := ir.OrDefault(n.Payload.Path, "uploaded.csv")
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM read_csv_auto(%s, header=true))",
				alias, sqlString(path)))

		case ir.KindSelect:
			cols := strings.TrimSpace(n.Payload.Columns)
			selectList := "*"
			if cols != "" && cols != "*" {
				quoted := ir.SplitList(cols)
				for i, c := range quoted {
					quoted[i] = sqlIdent(c)
				}
				selectList = strings.Join(quoted, ", ")
			}
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT %s FROM %s)", alias, selectList, ps[0]))

		case ir.KindFilter:
			expr := ir.OrDefault(n.Payload.Expr, "1=1")
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s WHERE %s)", alias, ps[0], expr))

		case ir.KindAggregate:
			ctes = append(ctes, genSQLAggregate(alias, ps[0], n.Payload))

		case ir.KindDerive:
			newCol := ir.OrDefault(n.Payload.NewCol, "new_column")
			expr := ir.OrDefault(n.Payload.Expr, "0")
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT *, (%s) AS %s FROM %s)",
				alias, expr, sqlIdent(newCol), ps[0]))

		case ir.KindSort:
			keys := ir.ParseSortSpec(n.Payload.SortSpec)
			if len(keys) == 0 {
				ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s)", alias, ps[0]))
				break
			}
			ob := make([]string, len(keys))
			for i, k := range keys {
				dir := "ASC"
				if k.Desc {
					dir = "DESC"
				}
				ob[i] = sqlIdent(k.Col) + " " + dir
			}
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s ORDER BY %s)",
				alias, ps[0], strings.Join(ob, ", ")))

		case ir.KindSample:
			if n.Payload.Mode == ir.SampleFraction {
				frac := n.Payload.Frac
				if frac == 0 {
					frac = 0.1
				}
				ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s WHERE random() < %g)",
					alias, ps[0], frac))
			} else {
				count := n.Payload.N
				if count == 0 {
					count = 100
				}
				ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s USING SAMPLE %d ROWS)",
					alias, ps[0], count))
			}

		case ir.KindJoin:
			how := ir.SQLJoinKeyword(n.Payload.How)
			left, right := ir.ZipJoinKeys(n.Payload.LeftKeys, n.Payload.RightKeys)
			onParts := make([]string, len(left))
			for i := range left {
				onParts[i] = fmt.Sprintf("%s.%s = %s.%s",
					ps[0], sqlIdent(left[i]), ps[1], sqlIdent(right[i]))
			}
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s %s JOIN %s ON %s)",
				alias, ps[0], how, ps[1], strings.Join(onParts, " AND ")))

		case ir.KindWrite:
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s)", alias, ps[0]))

		default:
			if len(ps) == 0 {
				ctes = append(ctes, fmt.Sprintf("%s AS (SELECT NULL WHERE 1=0 /* unhandled kind: %s */)",
					alias, n.Kind))
				break
			}
			ctes = append(ctes, fmt.Sprintf("%s AS (SELECT * FROM %s /* unhandled kind: %s */)",
				alias, ps[0], n.Kind))
		}
	}

	last := "final"
	if len(g.order) > 0 {
		last = g.names[g.order[len(g.order)-1]]
	}
	if len(ctes) > 0 {
		parts = append(parts, "WITH\n  "+strings.Join(ctes, ",\n  "))
	}
	parts = append(parts, fmt.Sprintf("SELECT * FROM %s;", last))
	return strings.Join(parts, "\n")
}

func genSQLAggregate(alias, parent string, p ir.Payload) string {
	by := ir.SplitList(p.GroupBy)
	for i, c := range by {
		by[i] = sqlIdent(c)
	}

	var exprs []string
	for _, m := range ir.ValidMeasures(p.Measures) {
		exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s",
			m.Op, sqlIdent(m.Col), sqlIdent(ir.MeasureName(m))))
	}

	selectParts := "*"
	if len(by) > 0 || len(exprs) > 0 {
		selectParts = strings.Join(append(append([]string{}, by...), exprs...), ", ")
	}
	group := ""
	if len(by) > 0 {
		group = " GROUP BY " + strings.Join(by, ", ")
	}
	return fmt.Sprintf("%s AS (SELECT %s FROM %s%s)", alias, selectParts, parent, group)
}
