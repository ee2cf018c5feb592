package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/compiler"
	"github.com/pipeweld/pipeweld/internal/ir"
)

// OptimizeOptions holds flags for the optimize command.
type OptimizeOptions struct {
	*RootOptions
	Target string
}

// optimizedGraph is the JSON payload for optimize output.
type optimizedGraph struct {
	Nodes []ir.Node `json:"nodes"`
	Edges []ir.Edge `json:"edges"`
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "optimize <graph-file>",
		Short:         "Prune dead nodes and fuse adjacent transforms",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "keep only this node and its ancestors")

	return cmd
}

func runOptimize(opts *OptimizeOptions, graphPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	svc := newService(opts.RootOptions, cmd)

	nodes, edges, err := compiler.LoadFile(graphPath)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}

	outNodes, outEdges, err := svc.Optimize(nodes, edges, opts.Target)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}

	if opts.Format == "json" {
		return formatter.JSON(optimizedGraph{Nodes: outNodes, Edges: outEdges})
	}

	fmt.Fprintf(formatter.Writer, "%d node(s) -> %d node(s), %d edge(s) -> %d edge(s)\n",
		len(nodes), len(outNodes), len(edges), len(outEdges))
	for _, n := range outNodes {
		fmt.Fprintf(formatter.Writer, "  %s (%s)\n", n.ID, n.Kind)
	}
	return nil
}
