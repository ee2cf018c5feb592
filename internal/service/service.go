// Package service is the facade the transport layer talks to. One Service
// method per operation: compile program text, optimize a graph, interpret
// it, validate a backend against the interpreter, or execute user-supplied
// program text. Each call is independent; the only cross-call state is the
// logger.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pipeweld/pipeweld/internal/codegen"
	"github.com/pipeweld/pipeweld/internal/compiler"
	"github.com/pipeweld/pipeweld/internal/interp"
	"github.com/pipeweld/pipeweld/internal/ir"
	"github.com/pipeweld/pipeweld/internal/optimizer"
	"github.com/pipeweld/pipeweld/internal/runtime"
	"github.com/pipeweld/pipeweld/internal/sig"
	"github.com/pipeweld/pipeweld/internal/staging"
	"github.com/pipeweld/pipeweld/internal/tabular"
)

// Service bundles the pipeline operations behind one façade.
type Service struct {
	log *slog.Logger

	// runtimeFor is swappable so tests can stub backend execution.
	runtimeFor func(codegen.Language) (runtime.Runtime, bool)
}

// Option configures a Service.
type Option func(*Service)

// WithRuntimes overrides backend runtime lookup.
func WithRuntimes(f func(codegen.Language) (runtime.Runtime, bool)) Option {
	return func(s *Service) { s.runtimeFor = f }
}

// New builds a Service. A nil logger silences it.
func New(log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{log: log, runtimeFor: runtime.ForLanguage}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Compile lowers the graph to program text for one backend.
func (s *Service) Compile(nodes []ir.Node, edges []ir.Edge, lang codegen.Language) (string, error) {
	text, err := codegen.Lower(nodes, edges, lang)
	if err != nil {
		return "", err
	}
	s.log.Debug("lowered graph", "lang", lang, "nodes", len(nodes), "bytes", len(text))
	return text, nil
}

// Optimize prunes dead nodes relative to targetID and fuses adjacent
// transforms. An empty targetID keeps every node live.
func (s *Service) Optimize(nodes []ir.Node, edges []ir.Edge, targetID string) ([]ir.Node, []ir.Edge, error) {
	if err := compiler.ValidateTarget(nodes, targetID); err != nil {
		return nil, nil, err
	}
	outNodes, outEdges := optimizer.Optimize(nodes, edges, targetID)
	s.log.Debug("optimized graph",
		"nodes_in", len(nodes), "nodes_out", len(outNodes),
		"edges_in", len(edges), "edges_out", len(outEdges))
	return outNodes, outEdges, nil
}

// Interpret executes the graph directly and returns the best-effort result
// with per-node diagnostics.
func (s *Service) Interpret(nodes []ir.Node, edges []ir.Edge, previewID string) (interp.Result, error) {
	if err := compiler.ValidateTarget(nodes, previewID); err != nil {
		return interp.Result{}, err
	}
	res, err := interp.Run(nodes, edges, previewID)
	if err != nil {
		return interp.Result{}, err
	}
	if len(res.NodeErrors) > 0 {
		s.log.Warn("interpreter recovered node failures", "count", len(res.NodeErrors))
	}
	return res, nil
}

// Report is the outcome of one differential validation.
type Report struct {
	Backend string `json:"backend"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason"`
}

// Validate interprets the graph, runs the lowered program under the target
// backend, and compares signatures. An unknown language is a reported
// failure, not an error; a backend that fails to execute is an error.
func (s *Service) Validate(ctx context.Context, nodes []ir.Node, edges []ir.Edge, lang codegen.Language, previewID string) (Report, error) {
	truth, err := s.Interpret(nodes, edges, previewID)
	if err != nil {
		return Report{}, err
	}
	truthSig := sig.Compute(truth.Table, sig.DefaultSampleLimit)

	rt, ok := s.runtimeFor(lang)
	if !ok {
		return Report{
			Backend: string(lang),
			Valid:   false,
			Reason:  fmt.Sprintf("unsupported language: %s", lang),
		}, nil
	}

	program, err := codegen.Lower(nodes, edges, lang)
	if err != nil {
		return Report{}, err
	}

	out, err := s.executeStaged(ctx, rt, lang, program, nodes)
	if err != nil {
		return Report{}, err
	}

	valid, reason := sig.Compare(truthSig, sig.Compute(out, sig.DefaultSampleLimit))
	s.log.Info("validated backend", "backend", rt.Name(), "valid", valid)
	return Report{Backend: rt.Name(), Valid: valid, Reason: reason}, nil
}

// ExecuteUserText runs caller-supplied program text under its backend, with
// the same staged-file substitution generated programs get.
func (s *Service) ExecuteUserText(ctx context.Context, lang codegen.Language, text string, nodes []ir.Node) (tabular.Table, error) {
	rt, ok := s.runtimeFor(lang)
	if !ok {
		return tabular.Table{}, &codegen.ErrUnsupportedLanguage{Lang: lang}
	}
	return s.executeStaged(ctx, rt, lang, text, nodes)
}

// executeStaged materializes in-memory sources, rewrites path literals in
// the program, and runs it. The staging directory is released on every exit
// path.
func (s *Service) executeStaged(ctx context.Context, rt runtime.Runtime, lang codegen.Language, program string, nodes []ir.Node) (tabular.Table, error) {
	dir, err := staging.Stage(staging.Sources(nodes))
	if err != nil {
		return tabular.Table{}, err
	}
	defer dir.Cleanup()

	program = rewriteFor(lang, program, dir.Mapping)
	out, err := rt.Execute(ctx, program)
	if err != nil {
		return tabular.Table{}, err
	}
	return out, nil
}

func rewriteFor(lang codegen.Language, program string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return program
	}
	switch lang {
	case codegen.LangPython:
		return staging.RewritePython(program, mapping)
	case codegen.LangSQL:
		return staging.RewriteSQL(program, mapping)
	case codegen.LangSpark:
		return staging.RewriteSpark(program, mapping)
	default:
		return program
	}
}
