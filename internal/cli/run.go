package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/compiler"
	"github.com/pipeweld/pipeweld/internal/tabular"
)

// previewLimit bounds the rows shown by run and exec.
const previewLimit = 200

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Preview string
}

// runResult is the JSON payload for run output.
type runResult struct {
	Columns    []string          `json:"columns"`
	Rows       int               `json:"rows"`
	Preview    [][]any           `json:"preview"`
	NodeErrors map[string]string `json:"node_errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <graph-file>",
		Short: "Execute a graph under the interpreter",
		Long: `Execute a graph directly under the ground-truth interpreter and print the
resulting table. Node failures are reported per node; the run continues past
them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Preview, "preview", "", "execute only this node and its ancestors")

	return cmd
}

func runRun(opts *RunOptions, graphPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	svc := newService(opts.RootOptions, cmd)

	nodes, edges, err := compiler.LoadFile(graphPath)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}

	res, err := svc.Interpret(nodes, edges, opts.Preview)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Format == "json" {
		return formatter.JSON(runResult{
			Columns:    res.Table.Columns,
			Rows:       res.Table.RowCount(),
			Preview:    res.Table.Head(previewLimit).Rows,
			NodeErrors: res.NodeErrors,
		})
	}

	printTable(formatter, res.Table)
	if len(res.NodeErrors) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Node errors:")
		for id, msg := range res.NodeErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", id, msg)
		}
	}
	return nil
}

func printTable(formatter *OutputFormatter, t tabular.Table) {
	if t.IsEmpty() {
		fmt.Fprintln(formatter.Writer, "(empty table)")
		return
	}
	fmt.Fprintln(formatter.Writer, strings.Join(t.Columns, " | "))
	head := t.Head(previewLimit)
	for _, row := range head.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = tabular.FormatCell(v)
		}
		fmt.Fprintln(formatter.Writer, strings.Join(cells, " | "))
	}
	if t.RowCount() > head.RowCount() {
		fmt.Fprintf(formatter.Writer, "... (%d rows total)\n", t.RowCount())
	} else {
		fmt.Fprintf(formatter.Writer, "(%d rows)\n", t.RowCount())
	}
}
