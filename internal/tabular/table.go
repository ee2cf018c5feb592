// Package tabular provides the in-memory table value exchanged between the
// interpreter, the backend runtimes, and the differential validator, plus
// CSV encoding/decoding with lightweight column type inference.
package tabular

import (
	"fmt"
	"strconv"
)

// Table is a materialized tabular result. Cells are nil, int64, float64, or
// string; column order is significant everywhere (signatures compare column
// name-and-order).
type Table struct {
	Columns []string
	Rows    [][]any
}

// Empty returns the canonical empty table: no columns, no rows. Used by the
// interpreter as the substitute output of a failed node.
func Empty() Table {
	return Table{}
}

// IsEmpty reports whether the table has no columns at all. A table with
// columns but zero rows is not empty in this sense.
func (t Table) IsEmpty() bool {
	return len(t.Columns) == 0
}

// RowCount returns the number of rows.
func (t Table) RowCount() int {
	return len(t.Rows)
}

// Head returns a view of the first n rows (all rows if fewer).
func (t Table) Head(n int) Table {
	if n >= len(t.Rows) {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// DTypes returns per-column type names inferred from cell contents:
// "int64", "float64", "string", or "object" for an all-null column. A column
// holding mixed numeric and text cells reports "string".
func (t Table) DTypes() []string {
	out := make([]string, len(t.Columns))
	for i := range t.Columns {
		var sawInt, sawFloat, sawString, sawValue bool
		for _, row := range t.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			sawValue = true
			switch row[i].(type) {
			case int64:
				sawInt = true
			case float64:
				sawFloat = true
			default:
				sawString = true
			}
		}
		switch {
		case !sawValue:
			out[i] = "object"
		case sawString:
			out[i] = "string"
		case sawFloat:
			out[i] = "float64"
		case sawInt:
			out[i] = "int64"
		default:
			out[i] = "object"
		}
	}
	return out
}

// FormatCell renders a cell the way the CSV codec does: nil as the empty
// string, integers without exponent, floats via strconv 'g'.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
