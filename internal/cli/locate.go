package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/locate"
	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/trace"
)

// LocateOptions holds flags for the locate command.
type LocateOptions struct {
	*RootOptions
	State string
	Edge  string
}

// LocateResult is the located span's identity and bounds.
type LocateResult struct {
	SpanID    string    `json:"span_id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status,omitempty"`
}

// NewLocateCommand creates the locate command.
func NewLocateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LocateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "locate <trace-file>",
		Short: "Resolve a graph state or edge back to its originating span",
		Long: `Resolve a clicked graph identity back to the span that produced it.

Pass --state with a state identity ("agent:research", "tool:search") or
--edge with "from->to". For tool edges the tool's span is returned; for
agent-to-agent edges the handoff span; for self-loops the agent's first
invocation.

Exit codes:
  0 - Span found
  1 - No span matches the identity
  2 - Command error (bad flags, file unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", `state identity (e.g. "agent:research")`)
	cmd.Flags().StringVar(&opts.Edge, "edge", "", `edge identity (e.g. "agent:research->tool:search")`)

	return cmd
}

func runLocate(opts *LocateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if (opts.State == "") == (opts.Edge == "") {
		return NewExitError(ExitCommandError, "exactly one of --state or --edge is required")
	}

	f, err := trace.Load(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}

	var found *span.Span
	var identity string
	if opts.State != "" {
		identity = opts.State
		found = locate.ForState(f.Spans, opts.State)
	} else {
		identity = opts.Edge
		from, to, ok := splitEdgeIdentity(opts.Edge)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("edge %q must have the form from->to", opts.Edge))
		}
		found = locate.ForEdge(f.Spans, from, to)
	}

	if found == nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("no span found for %q", identity), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no span found for %q", identity))
	}

	result := LocateResult{
		SpanID:    found.ID,
		Name:      found.Name,
		StartTime: found.StartTime,
		EndTime:   found.EndTime,
		Status:    string(found.Status),
	}

	if formatter.Format == "json" {
		return formatter.JSON(result)
	}

	fmt.Fprintf(formatter.Writer, "%s -> span %s (%s, %s..%s)\n",
		identity, result.SpanID, result.Name,
		result.StartTime.Format(time.RFC3339), result.EndTime.Format(time.RFC3339))
	return nil
}

// splitEdgeIdentity parses "from->to", tolerating an occurrence "#i" suffix
// since renderers hand back the full occurrence identity.
func splitEdgeIdentity(edge string) (from, to string, ok bool) {
	if i := strings.Index(edge, "#"); i >= 0 {
		edge = edge[:i]
	}
	parts := strings.SplitN(edge, "->", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
