package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/codegen"
	"github.com/pipeweld/pipeweld/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Lang     string
	Optimize bool
	Target   string
	Output   string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <graph-file>",
		Short: "Lower a graph document to backend program text",
		Long: `Lower a graph document (JSON or YAML) to program text for one backend.

Targets: python (pandas), sql (DuckDB), spark (PySpark).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Lang, "lang", "l", "python", "target language (python|sql|spark)")
	cmd.Flags().BoolVar(&opts.Optimize, "optimize", false, "optimize the graph before lowering")
	cmd.Flags().StringVar(&opts.Target, "target", "", "optimization target node id (implies pruning to its ancestors)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, graphPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	svc := newService(opts.RootOptions, cmd)

	nodes, edges, err := compiler.LoadFile(graphPath)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}
	formatter.VerboseLog("Loaded %d node(s), %d edge(s) from %s", len(nodes), len(edges), graphPath)

	if opts.Optimize {
		nodes, edges, err = svc.Optimize(nodes, edges, opts.Target)
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
		}
		formatter.VerboseLog("Optimized to %d node(s)", len(nodes))
	}

	text, err := svc.Compile(nodes, edges, codegen.Language(opts.Lang))
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLower, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text+"\n"), 0o644); err != nil {
			return formatter.Error(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote program to %s", opts.Output)
	}

	if opts.Format == "json" {
		return formatter.JSON(map[string]any{"lang": opts.Lang, "program": text})
	}
	fmt.Fprintln(formatter.Writer, text)
	return nil
}
