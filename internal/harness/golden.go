package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file form of a scenario execution: the extracted
// state and edge identities plus every checkpoint frame. Positions are
// seconds from the trace base so the files stay readable.
type Snapshot struct {
	ScenarioName string               `json:"scenario_name"`
	States       []string             `json:"states"`
	Edges        []string             `json:"edges"`
	Checkpoints  []CheckpointSnapshot `json:"checkpoints"`
}

// CheckpointSnapshot is one projected frame in golden form.
type CheckpointSnapshot struct {
	Position      float64  `json:"position"`
	VisibleStates []string `json:"visible_states"`
	VisibleEdges  []string `json:"visible_edges"`
	ActiveEdge    string   `json:"active_edge"`
}

// snapshot converts a result into its golden form. Slices are always
// non-nil so empty frames serialize as [] instead of null.
func (r *Result) snapshot() *Snapshot {
	snap := &Snapshot{
		ScenarioName: r.Scenario.Name,
		States:       r.Extraction.StateIDs(),
		Edges:        make([]string, 0, len(r.Graph.Edges)),
		Checkpoints:  make([]CheckpointSnapshot, 0, len(r.Frames)),
	}
	if snap.States == nil {
		snap.States = []string{}
	}
	for _, e := range r.Graph.Edges {
		snap.Edges = append(snap.Edges, e.ID)
	}

	for _, cf := range r.Frames {
		cs := CheckpointSnapshot{
			Position:      cf.Offset,
			VisibleStates: make([]string, 0, len(cf.Frame.VisibleStates)),
			VisibleEdges:  make([]string, 0, len(cf.Frame.VisibleEdges)),
		}
		cs.VisibleStates = append(cs.VisibleStates, cf.Frame.VisibleStates...)
		for _, occ := range cf.Frame.VisibleEdges {
			cs.VisibleEdges = append(cs.VisibleEdges, occ.ID())
		}
		if cf.Frame.ActiveEdge != nil {
			cs.ActiveEdge = cf.Frame.ActiveEdge.ID()
		}
		snap.Checkpoints = append(snap.Checkpoints, cs)
	}
	return snap
}

// RunWithGolden executes a scenario, checks its assertions, and compares
// the snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, failure := range result.Evaluate() {
		t.Error(failure)
	}

	data, err := encodeSnapshot(result.snapshot())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

// encodeSnapshot renders a snapshot as indented JSON without HTML
// escaping, keeping the "->" edge identities readable in golden files.
func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
