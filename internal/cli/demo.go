package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/trace"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Output string
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate a synthetic demo trace file",
		Long: `Write a synthetic multi-agent trace file.

The generated trace exercises every shape the graph renders: a handoff
chain across three agents, repeated tool calls collapsing into one state,
and a failing tool invocation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "demo.json", "output trace file path")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	f := trace.NewGenerator().Demo()
	if err := trace.Write(opts.Output, f); err != nil {
		return WrapExitError(ExitCommandError, "failed to write demo trace", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(map[string]string{
			"trace_id": f.TraceID,
			"path":     opts.Output,
		})
	}

	fmt.Fprintf(formatter.Writer, "Wrote demo trace %q to %s\n", f.TraceID, opts.Output)
	return nil
}
