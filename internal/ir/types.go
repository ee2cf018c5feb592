package ir

// Kind identifies a node's operation. The enumeration is closed; anything
// not listed here normalizes to KindUnknown (single-input passthrough).
type Kind string

const (
	KindLoad      Kind = "source.load"
	KindSelect    Kind = "transform.select"
	KindFilter    Kind = "transform.filter"
	KindAggregate Kind = "transform.aggregate"
	KindDerive    Kind = "transform.derive"
	KindSort      Kind = "transform.sort"
	KindSample    Kind = "transform.sample"
	KindJoin      Kind = "transform.join"
	KindWrite     Kind = "sink.write"
	KindUnknown   Kind = "unknown"
)

// ValidKinds defines the closed set of recognized kinds.
var ValidKinds = map[Kind]bool{
	KindLoad:      true,
	KindSelect:    true,
	KindFilter:    true,
	KindAggregate: true,
	KindDerive:    true,
	KindSort:      true,
	KindSample:    true,
	KindJoin:      true,
	KindWrite:     true,
	KindUnknown:   true,
}

// Sample modes for KindSample.
const (
	SampleRows     = "rows"
	SampleFraction = "fraction"
)

// Measure is one aggregate output: Op applied to Col, emitted under Alias
// (or "op_col" when Alias is empty).
type Measure struct {
	Col   string `json:"col"`
	Op    string `json:"op"`
	Alias string `json:"alias,omitempty"`
}

// Payload holds the kind-specific fields of a node. Only the fields relevant
// to the node's kind are meaningful; the rest stay zero.
type Payload struct {
	// source.load / sink.write
	Path string `json:"path,omitempty"`
	// source.load only: inline file content. When non-empty the interpreter
	// reads it directly and backend execution stages it to a temp file first.
	Content string `json:"content,omitempty"`

	// transform.select: "*" or ordered comma list of column names.
	Columns string `json:"columns,omitempty"`

	// transform.filter / transform.derive: opaque expression text.
	Expr string `json:"expr,omitempty"`

	// transform.aggregate
	GroupBy  string    `json:"group_by,omitempty"`
	Measures []Measure `json:"measures,omitempty"`

	// transform.derive
	NewCol string `json:"new_col,omitempty"`

	// transform.sort: ordered comma list of "col" or "col desc".
	SortSpec string `json:"sort_spec,omitempty"`

	// transform.sample
	Mode string  `json:"mode,omitempty"`
	N    int     `json:"n,omitempty"`
	Frac float64 `json:"frac,omitempty"`

	// transform.join
	How       string `json:"how,omitempty"`
	LeftKeys  string `json:"left_keys,omitempty"`
	RightKeys string `json:"right_keys,omitempty"`
}

// Node is one operation in a pipeline graph.
type Node struct {
	ID      string  `json:"id"`
	Label   string  `json:"label,omitempty"`
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
}

// Edge is a directed dependency: Source's output feeds Target.
// Duplicate (source, target) pairs are permitted on input; the optimizer
// deduplicates them on output.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NormalizedKind returns the node's kind, folding anything outside the
// closed enumeration to KindUnknown.
func (n Node) NormalizedKind() Kind {
	if ValidKinds[n.Kind] {
		return n.Kind
	}
	return KindUnknown
}

// InputArity returns the number of incoming edges a kind requires.
// Violations are a construction-time contract failure, checked by the
// compiler package, never a recoverable runtime condition.
func InputArity(k Kind) int {
	switch k {
	case KindLoad:
		return 0
	case KindJoin:
		return 2
	default:
		return 1
	}
}

// CloneNodes returns a shallow-independent copy of a node slice. Payloads
// are value types, so surviving-node rewrites in the optimizer never alias
// the caller's graph.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out
}

// CloneEdges returns an independent copy of an edge slice.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}
