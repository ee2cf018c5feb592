package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/codegen"
	"github.com/pipeweld/pipeweld/internal/compiler"
	"github.com/pipeweld/pipeweld/internal/ir"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Lang  string
	Graph string
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <program-file>",
		Short: "Execute user-supplied program text under a backend",
		Long: `Execute edited program text under its backend runtime and print the
resulting table. With --graph, inline source data from the graph document is
staged to files and path references in the program are rewritten to match.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Lang, "lang", "l", "python", "program language (python|sql|spark)")
	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "graph document supplying inline source data")

	return cmd
}

func runExec(opts *ExecOptions, programPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	svc := newService(opts.RootOptions, cmd)

	text, err := os.ReadFile(programPath)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	var nodes []ir.Node
	if opts.Graph != "" {
		nodes, _, err = compiler.LoadFile(opts.Graph)
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
		}
	}

	out, err := svc.ExecuteUserText(cmd.Context(), codegen.Language(opts.Lang), string(text), nodes)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeBackend, err.Error(), nil)
	}

	if opts.Format == "json" {
		return formatter.JSON(runResult{
			Columns: out.Columns,
			Rows:    out.RowCount(),
			Preview: out.Head(previewLimit).Rows,
		})
	}
	printTable(formatter, out)
	return nil
}
