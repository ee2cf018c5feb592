// Package compiler turns a graph document (JSON or YAML) into the node and
// edge sets the rest of the system consumes. Documents are checked twice:
// against an embedded CUE schema for shape, then structurally (ids, edge
// endpoints, input arity). Both checks are fatal to the request; per-node
// runtime failures are the interpreter's business, not the compiler's.
package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/pipeweld/pipeweld/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// document is the wire shape of a graph request.
type document struct {
	Nodes []ir.Node `json:"nodes"`
	Edges []ir.Edge `json:"edges"`
}

// LoadFile reads a graph document, picking the format from the extension
// (.yaml/.yml for YAML, anything else JSON).
func LoadFile(path string) ([]ir.Node, []ir.Edge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read graph document: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return LoadJSON(data)
	}
}

// LoadJSON compiles a JSON graph document.
func LoadJSON(data []byte) ([]ir.Node, []ir.Edge, error) {
	if err := checkSchema(data); err != nil {
		return nil, nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &CompileError{Field: "document", Message: err.Error()}
	}
	return finish(doc)
}

// LoadYAML compiles a YAML graph document. The document is converted to JSON
// first so both formats share one schema and one set of field names.
func LoadYAML(data []byte) ([]ir.Node, []ir.Edge, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, &CompileError{Field: "document", Message: err.Error()}
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, &CompileError{Field: "document", Message: err.Error()}
	}
	return LoadJSON(jsonData)
}

// finish applies structural validation and hands back the graph.
func finish(doc document) ([]ir.Node, []ir.Edge, error) {
	if errs := Validate(doc.Nodes, doc.Edges); len(errs) > 0 {
		return nil, nil, &GraphError{Errors: errs}
	}
	return doc.Nodes, doc.Edges, nil
}

// checkSchema unifies the document with the embedded schema.
func checkSchema(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}

	expr, err := cuejson.Extract("graph.json", data)
	if err != nil {
		return formatCUEError(err)
	}
	v := ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Graph")).Unify(v)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// CompileError is a document-level failure with source position when the
// schema check can supply one.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "schema",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "schema", Message: first.Error()}
}
