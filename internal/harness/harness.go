package harness

import (
	"fmt"

	"github.com/rhesis-ai/traceplay/internal/graph"
	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/playback"
)

// CheckpointFrame pairs a checkpoint offset with its projected frame.
type CheckpointFrame struct {
	Offset float64
	Frame  playback.Frame
}

// Result holds everything a scenario execution produced.
type Result struct {
	Scenario   *Scenario
	Extraction *markov.Extraction
	Graph      *graph.Graph
	Frames     []CheckpointFrame
}

// Run executes a scenario through the real pipeline: materialize the
// forest, extract, assemble, and project a frame at every checkpoint.
func Run(scenario *Scenario) (*Result, error) {
	forest, err := scenario.Forest()
	if err != nil {
		return nil, err
	}

	ex := markov.Extract(forest)
	result := &Result{
		Scenario:   scenario,
		Extraction: ex,
		Graph:      graph.Assemble(ex),
		Frames:     make([]CheckpointFrame, 0, len(scenario.Checkpoints)),
	}

	projector := playback.NewProjector(ex)
	for _, offset := range scenario.Checkpoints {
		result.Frames = append(result.Frames, CheckpointFrame{
			Offset: offset,
			Frame:  projector.Project(CheckpointTime(offset)),
		})
	}
	return result, nil
}

// Evaluate checks every assertion against the result and returns one
// error per failed assertion. An empty slice means the scenario passed.
func (r *Result) Evaluate() []error {
	var failures []error
	for i, a := range r.Scenario.Assertions {
		if err := r.evaluate(&a); err != nil {
			failures = append(failures, fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err))
		}
	}
	return failures
}

func (r *Result) evaluate(a *Assertion) error {
	switch a.Type {
	case AssertVisibleStates:
		frame, err := r.frameAt(a.At)
		if err != nil {
			return err
		}
		if !equalStrings(frame.VisibleStates, a.States) {
			return fmt.Errorf("at t=%v: visible states %v, want %v", a.At, frame.VisibleStates, a.States)
		}

	case AssertVisibleEdgeCount:
		frame, err := r.frameAt(a.At)
		if err != nil {
			return err
		}
		if len(frame.VisibleEdges) != a.Count {
			return fmt.Errorf("at t=%v: %d visible edges, want %d", a.At, len(frame.VisibleEdges), a.Count)
		}

	case AssertActiveEdge:
		frame, err := r.frameAt(a.At)
		if err != nil {
			return err
		}
		got := ""
		if frame.ActiveEdge != nil {
			got = frame.ActiveEdge.ID()
		}
		if got != a.Edge {
			return fmt.Errorf("at t=%v: active edge %q, want %q", a.At, got, a.Edge)
		}

	case AssertStateCount:
		if len(r.Extraction.States) != a.Count {
			return fmt.Errorf("%d states extracted, want %d", len(r.Extraction.States), a.Count)
		}

	case AssertTransitionCount:
		got := 0
		for _, tr := range r.Extraction.Transitions {
			if tr.From == a.From && tr.To == a.To {
				got = tr.Count
				break
			}
		}
		if got != a.Count {
			return fmt.Errorf("transition %s -> %s has count %d, want %d", a.From, a.To, got, a.Count)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (r *Result) frameAt(offset float64) (*playback.Frame, error) {
	for i := range r.Frames {
		if r.Frames[i].Offset == offset {
			return &r.Frames[i].Frame, nil
		}
	}
	return nil, fmt.Errorf("no checkpoint at t=%v", offset)
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
