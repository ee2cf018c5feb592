package codegen

import (
	"fmt"
	"strings"
)

// DefaultName is the placeholder identifier for nodes whose label reduces to
// nothing after sanitization.
const DefaultName = "node"

// AssignNames maps node IDs to deterministic, collision-free identifiers:
// lowercase the label, collapse every non-alphanumeric run to a single
// underscore, trim leading/trailing underscores, fall back to DefaultName,
// then dedupe repeats with _2, _3, ... in topological visit order.
//
// The identifiers form the variable/table-alias namespace of all generated
// programs, so every lowerer must derive them from the same order for
// cross-referenced names to agree.
func AssignNames(order []string, labels map[string]string) map[string]string {
	counts := make(map[string]int, len(order))
	names := make(map[string]string, len(order))
	for _, id := range order {
		base := sanitizeName(labels[id])
		counts[base]++
		if counts[base] == 1 {
			names[id] = base
		} else {
			names[id] = fmt.Sprintf("%s_%d", base, counts[base])
		}
	}
	return names
}

func sanitizeName(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return DefaultName
	}
	return b.String()
}
