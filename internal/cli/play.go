package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/playback"
	"github.com/rhesis-ai/traceplay/internal/trace"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Speed float64
	Steps int
}

// PlayResult is the play command's JSON payload: the frame at each
// simulated checkpoint.
type PlayResult struct {
	TraceID string           `json:"trace_id"`
	Speed   float64          `json:"speed"`
	Frames  []playback.Frame `json:"frames"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <trace-file>",
		Short: "Simulate playback and print the frame at each step",
		Long: `Simulate a full playback offline with synthetic ticks.

Runs the clock from start to end with deterministic tick deltas (no
wall-clock waiting) and prints the projected frame at evenly spaced
checkpoints. Useful for inspecting what a renderer would show without
running the server.

Exit codes:
  0 - Playback simulated
  1 - Trace contains no agent or tool activity
  2 - Command error (file unreadable or malformed)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().IntVar(&opts.Steps, "steps", 10, "number of frames to print")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if opts.Speed <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("speed must be positive, got %v", opts.Speed))
	}
	if opts.Steps < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("steps must be at least 1, got %d", opts.Steps))
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

	result := PlayResult{
		TraceID: f.TraceID,
		Speed:   opts.Speed,
		Frames:  simulate(ex, opts.Speed, opts.Steps),
	}

	if formatter.Format == "json" {
		return formatter.JSON(result)
	}

	printPlayText(formatter, ex, &result)
	return nil
}

// simulate drives a clock with synthetic deltas sized so the whole
// playback takes exactly steps ticks, projecting a frame after each.
func simulate(ex *markov.Extraction, speed float64, steps int) []playback.Frame {
	clock := playback.NewClock(ex.Range, playback.WithSpeeds([]float64{speed}))
	projector := playback.NewProjector(ex)
	clock.Play()

	// One full playback at this speed takes refDur/speed of wall time.
	// The per-step delta truncates to a whole duration, so the last step
	// advances by the full playback length instead; the clock clamps at
	// the range end, and the final frame always lands exactly there.
	base := time.Duration(float64(playback.DefaultReferenceDuration) / speed)
	tick := base / time.Duration(steps)

	frames := make([]playback.Frame, 0, steps)
	for i := 0; i < steps; i++ {
		delta := tick
		if i == steps-1 {
			delta = base
		}
		cursor, state := clock.Advance(delta)
		frames = append(frames, projector.Project(cursor))
		if state == playback.StateEnded {
			break
		}
	}
	return frames
}

func printPlayText(f *OutputFormatter, ex *markov.Extraction, r *PlayResult) {
	fmt.Fprintf(f.Writer, "Trace %s at %gx (%d frames)\n\n", r.TraceID, r.Speed, len(r.Frames))

	for _, frame := range r.Frames {
		offset := frame.Cursor.Sub(ex.Range.Start).Round(time.Millisecond)
		fmt.Fprintf(f.Writer, "t=%-8s states=%d edges=%d", offset, len(frame.VisibleStates), len(frame.VisibleEdges))
		if frame.ActiveEdge != nil {
			fmt.Fprintf(f.Writer, " active=%s", frame.ActiveEdge.ID())
		}
		fmt.Fprintln(f.Writer)
	}
}
