package compiler

import (
	"fmt"
	"strings"

	"github.com/pipeweld/pipeweld/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyNodeID         = "E101" // node id must be non-empty
	ErrDuplicateNodeID     = "E102" // node ids must be unique
	ErrUnknownEdgeEndpoint = "E103" // edge references a missing node
	ErrWrongInputArity     = "E104" // incoming edge count does not match kind
	ErrUnknownTargetNode   = "E105" // target/preview id not in graph
)

// ValidationError is one structural defect in a graph document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// GraphError aggregates every structural defect found in one document.
type GraphError struct {
	Errors []ValidationError
}

func (e *GraphError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid graph: " + strings.Join(msgs, "; ")
}

// Validate checks graph structure. It returns all defects found rather than
// stopping at the first.
func Validate(nodes []ir.Node, edges []ir.Edge) []ValidationError {
	var errs []ValidationError

	ids := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		if strings.TrimSpace(n.ID) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%d].id", i),
				Message: "node id is required and must be non-empty",
				Code:    ErrEmptyNodeID,
			})
			continue
		}
		if ids[n.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%d].id", i),
				Message: fmt.Sprintf("duplicate node id: %q", n.ID),
				Code:    ErrDuplicateNodeID,
			})
		}
		ids[n.ID] = true
	}

	incoming := make(map[string]int, len(nodes))
	for i, e := range edges {
		if !ids[e.Source] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("edges[%d].source", i),
				Message: fmt.Sprintf("edge source %q is not a node", e.Source),
				Code:    ErrUnknownEdgeEndpoint,
			})
		}
		if !ids[e.Target] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("edges[%d].target", i),
				Message: fmt.Sprintf("edge target %q is not a node", e.Target),
				Code:    ErrUnknownEdgeEndpoint,
			})
		}
		incoming[e.Target]++
	}

	for i, n := range nodes {
		// Unknown kinds are single-input passthroughs, so the arity
		// contract applies to them like any other non-load, non-join kind.
		want := ir.InputArity(n.NormalizedKind())
		if got := incoming[n.ID]; got != want {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%d]", i),
				Message: fmt.Sprintf("node %q (%s) requires %d input(s), has %d", n.ID, n.Kind, want, got),
				Code:    ErrWrongInputArity,
			})
		}
	}

	return errs
}

// ValidateTarget checks that a preview or optimization target exists in the
// graph. An empty target means "whole graph" and always passes.
func ValidateTarget(nodes []ir.Node, targetID string) error {
	if targetID == "" {
		return nil
	}
	for _, n := range nodes {
		if n.ID == targetID {
			return nil
		}
	}
	return &GraphError{Errors: []ValidationError{{
		Field:   "target",
		Message: fmt.Sprintf("target node %q is not in the graph", targetID),
		Code:    ErrUnknownTargetNode,
	}}}
}
