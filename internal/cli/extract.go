package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/graph"
	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/trace"
)

// ExtractResult is the extract command's payload: the assembled graph
// plus the layout engine's input shape.
type ExtractResult struct {
	TraceID         string             `json:"trace_id"`
	DurationSeconds float64            `json:"duration_seconds"`
	Graph           *graph.Graph       `json:"graph"`
	LayoutNodes     []graph.LayoutNode `json:"layout_nodes"`
	LayoutEdges     []graph.LayoutEdge `json:"layout_edges"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <trace-file>",
		Short: "Extract the agent interaction graph from a trace file",
		Long: `Extract a Markov-style interaction graph from a trace file.

Walks the span forest once, classifying agent-invoke, tool-invoke, and
handoff spans into states and transitions, and assembles the node/edge
set for the external layout engine and renderer.

Exit codes:
  0 - Graph extracted
  1 - Trace contains no agent or tool activity
  2 - Command error (file unreadable or malformed)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExtract(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	f, err := trace.Load(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}

	ex := markov.Extract(f.Spans)
	if ex.Empty() {
		_ = formatter.Error(ErrCodeGeneric, markov.ErrNoData.Error(), nil)
		return WrapExitError(ExitFailure, f.TraceID, markov.ErrNoData)
	}

	g := graph.Assemble(ex)
	layoutNodes, layoutEdges := g.LayoutInput()
	result := ExtractResult{
		TraceID:         f.TraceID,
		DurationSeconds: ex.Range.Duration().Seconds(),
		Graph:           g,
		LayoutNodes:     layoutNodes,
		LayoutEdges:     layoutEdges,
	}

	if formatter.Format == "json" {
		return formatter.JSON(result)
	}

	printExtractSummary(formatter, &result, ex)
	return nil
}

func printExtractSummary(f *OutputFormatter, r *ExtractResult, ex *markov.Extraction) {
	fmt.Fprintf(f.Writer, "Trace %s (%.1fs)\n\n", r.TraceID, r.DurationSeconds)

	fmt.Fprintf(f.Writer, "States (%d):\n", len(r.Graph.Nodes))
	for _, n := range r.Graph.Nodes {
		marker := ""
		if n.HasError {
			marker = "  [error]"
		}
		fmt.Fprintf(f.Writer, "  %-40s %dx  %s%s\n",
			n.ID, n.InvocationCount, n.TotalDuration.Round(time.Millisecond), marker)
	}

	fmt.Fprintf(f.Writer, "\nTransitions (%d):\n", len(ex.Transitions))
	for _, tr := range ex.Transitions {
		fmt.Fprintf(f.Writer, "  %s -> %s  %dx\n", tr.From, tr.To, tr.Count)
	}
}
