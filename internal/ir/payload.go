package ir

import "strings"

// The helpers here are the single parsing layer for payload fields that more
// than one consumer reads. The three lowerers and the interpreter all
// dispatch on the same kinds; if they parsed column lists or join keys
// independently they could drift apart, so they share these instead.

// SplitList splits a comma list, trimming items and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SortKey is one parsed sort-spec token.
type SortKey struct {
	Col  string
	Desc bool
}

// ParseSortSpec parses "col" / "col desc" tokens; the desc suffix is
// case-insensitive, default ascending.
func ParseSortSpec(spec string) []SortKey {
	var out []SortKey
	for _, tok := range SplitList(spec) {
		fields := strings.Fields(tok)
		if len(fields) == 0 {
			continue
		}
		out = append(out, SortKey{
			Col:  fields[0],
			Desc: strings.HasSuffix(strings.ToLower(tok), "desc"),
		})
	}
	return out
}

// ZipJoinKeys pairs left and right key lists. When the right list is shorter
// than the left, indices beyond its length wrap to its first element. This
// wrap is a literal compatibility quirk, preserved identically in all three
// lowerers and the interpreter; it is covered by tests, not silently fixed.
func ZipJoinKeys(leftKeys, rightKeys string) (left, right []string) {
	left = SplitList(leftKeys)
	right = SplitList(rightKeys)
	if len(left) == 0 {
		left = []string{"id"}
	}
	if len(right) == 0 {
		right = []string{"id"}
	}
	paired := make([]string, len(left))
	for i := range left {
		if i < len(right) {
			paired[i] = right[i]
		} else {
			paired[i] = right[0]
		}
	}
	return left, paired
}

// SQLJoinKeyword maps a join mode to the keyword SQL dialects expect.
// "outer" alone is not a join type in SQL; it spells FULL OUTER. The other
// modes pass through uppercased, empty defaults to INNER.
func SQLJoinKeyword(how string) string {
	up := strings.ToUpper(OrDefault(how, "inner"))
	if up == "OUTER" {
		return "FULL OUTER"
	}
	return up
}

// MeasureName returns the output column for a measure: explicit alias or
// "op_col".
func MeasureName(m Measure) string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Op + "_" + m.Col
}

// ValidMeasures drops measures missing a column or operator.
func ValidMeasures(ms []Measure) []Measure {
	var out []Measure
	for _, m := range ms {
		if m.Col != "" && m.Op != "" {
			out = append(out, m)
		}
	}
	return out
}

// OrDefault substitutes fallback when s is empty or whitespace.
func OrDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
