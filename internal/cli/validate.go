package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/codegen"
	"github.com/pipeweld/pipeweld/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Lang    string
	Preview string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <graph-file>",
		Short: "Cross-validate a backend against the interpreter",
		Long: `Execute the graph under the interpreter, execute its lowered program under
the target backend, and compare result signatures. A mismatch exits 1; a
backend that fails to execute exits 2.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Lang, "lang", "l", "python", "backend to validate (python|sql|spark)")
	cmd.Flags().StringVar(&opts.Preview, "preview", "", "validate only this node and its ancestors")

	return cmd
}

func runValidate(opts *ValidateOptions, graphPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	svc := newService(opts.RootOptions, cmd)

	nodes, edges, err := compiler.LoadFile(graphPath)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}

	report, err := svc.Validate(cmd.Context(), nodes, edges, codegen.Language(opts.Lang), opts.Preview)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeBackend, err.Error(), nil)
	}

	if opts.Format == "json" {
		if err := formatter.JSON(report); err != nil {
			return err
		}
	} else if report.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %s: %s\n", report.Backend, report.Reason)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", report.Backend, report.Reason)
	}

	if !report.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", report.Reason))
	}
	return nil
}
