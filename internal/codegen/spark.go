package codegen

import (
	"fmt"
	"strings"

	"github.com/pipeweld/pipeweld/internal/ir"
)

// GenSpark lowers the graph to a lazy PySpark program. Like the pandas
// lowering it binds one DataFrame per node and ends with `result`; the
// cluster session is created up front with a fixed app name.
func GenSpark(nodes []ir.Node, edges []ir.Edge) string {
	g := newGenContext(nodes, edges)

	var L []string
	L = append(L,
		"# Generated by pipeweld (PySpark)",
		"from pyspark.sql import SparkSession, functions as F",
		"spark = SparkSession.builder.appName('pipeweld').getOrCreate()",
		"")

	for _, nid := range g.order {
		n := g.byID[nid]
		v := g.names[nid]
		ps := g.parentNames(nid)

		switch n.NormalizedKind() {
		case ir.KindLoad:
			path := ir.OrDefault(n.Payload.Path, "uploaded.csv")
			L = append(L, fmt.Sprintf("%s = spark.read.option('header', True).csv(%s)", v, pyString(path)))

		case ir.KindSelect:
			cols := strings.TrimSpace(n.Payload.Columns)
			if cols == "" || cols == "*" {
				L = append(L, fmt.Sprintf("%s = %s", v, ps[0]))
			} else {
				items := ir.SplitList(cols)
				quoted := make([]string, len(items))
				for i, c := range items {
					quoted[i] = pyString(c)
				}
				L = append(L, fmt.Sprintf("%s = %s.select(%s)", v, ps[0], strings.Join(quoted, ", ")))
			}

		case ir.KindFilter:
			expr := ir.OrDefault(n.Payload.Expr, "1=1")
			L = append(L, fmt.Sprintf("%s = %s.filter(%s)", v, ps[0], pyString(expr)))

		case ir.KindAggregate:
			L = append(L, genSparkAggregate(v, ps[0], n.Payload))

		case ir.KindDerive:
			newCol := ir.OrDefault(n.Payload.NewCol, "new_column")
			expr := ir.OrDefault(n.Payload.Expr, "0")
			L = append(L, fmt.Sprintf("%s = %s.withColumn(%s, F.expr(%s))",
				v, ps[0], pyString(newCol), pyString(expr)))

		case ir.KindSort:
			keys := ir.ParseSortSpec(n.Payload.SortSpec)
			if len(keys) == 0 {
				L = append(L, fmt.Sprintf("%s = %s", v, ps[0]))
				break
			}
			orders := make([]string, len(keys))
			for i, k := range keys {
				dir := "asc"
				if k.Desc {
					dir = "desc"
				}
				orders[i] = fmt.Sprintf("F.col(%s).%s()", pyString(k.Col), dir)
			}
			L = append(L, fmt.Sprintf("%s = %s.orderBy(%s)", v, ps[0], strings.Join(orders, ", ")))

		case ir.KindSample:
			if n.Payload.Mode == ir.SampleFraction {
				frac := n.Payload.Frac
				if frac == 0 {
					frac = 0.1
				}
				L = append(L, fmt.Sprintf("%s = %s.sample(%g)", v, ps[0], frac))
			} else {
				count := n.Payload.N
				if count == 0 {
					count = 100
				}
				L = append(L,
					fmt.Sprintf("__cnt = %s.count()", ps[0]),
					fmt.Sprintf("%s = %s.limit(min(%d, __cnt))", v, ps[0], count))
			}

		case ir.KindJoin:
			how := ir.OrDefault(n.Payload.How, "inner")
			left, right := ir.ZipJoinKeys(n.Payload.LeftKeys, n.Payload.RightKeys)
			conds := make([]string, len(left))
			for i := range left {
				conds[i] = fmt.Sprintf("%s.%s == %s.%s", ps[0], left[i], ps[1], right[i])
			}
			L = append(L, fmt.Sprintf("%s = %s.join(%s, on=(%s), how='%s')",
				v, ps[0], ps[1], strings.Join(conds, " & "), how))

		case ir.KindWrite:
			path := ir.OrDefault(n.Payload.Path, "out_spark.csv")
			L = append(L,
				fmt.Sprintf("%s.coalesce(1).write.mode('overwrite').option('header', True).csv(%s)",
					ps[0], pyString(path)),
				fmt.Sprintf("%s = %s", v, ps[0]))

		default:
			L = append(L, fmt.Sprintf("# TODO: %s", n.Kind))
		}
		L = append(L, "")
	}

	if len(g.order) > 0 {
		L = append(L, fmt.Sprintf("result = %s", g.names[g.order[len(g.order)-1]]))
	}
	return strings.Join(L, "\n")
}

func genSparkAggregate(v, parent string, p ir.Payload) string {
	by := ir.SplitList(p.GroupBy)
	var aggs []string
	for _, m := range ir.ValidMeasures(p.Measures) {
		aggs = append(aggs, fmt.Sprintf("F.%s(%s).alias(%s)",
			m.Op, pyString(m.Col), pyString(ir.MeasureName(m))))
	}

	if len(by) > 0 {
		quoted := make([]string, len(by))
		for i, c := range by {
			quoted[i] = pyString(c)
		}
		return fmt.Sprintf("%s = %s.groupBy(%s).agg(%s)",
			v, parent, strings.Join(quoted, ", "), strings.Join(aggs, ", "))
	}
	return fmt.Sprintf("%s = %s.agg(%s)", v, parent, strings.Join(aggs, ", "))
}
