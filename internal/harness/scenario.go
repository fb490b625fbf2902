package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/testutil"
)

// Scenario defines a playback conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spans is the input forest, with timestamps in seconds from the
	// fixed base time.
	Spans []SpanFixture `yaml:"spans"`

	// Checkpoints are cursor positions (seconds from the trace start)
	// at which frames are projected.
	Checkpoints []float64 `yaml:"checkpoints"`

	// Assertions validate the extraction and the checkpoint frames.
	Assertions []Assertion `yaml:"assertions"`
}

// Span fixture kinds.
const (
	KindAgent   = "agent"
	KindTool    = "tool"
	KindHandoff = "handoff"
	KindWork    = "work"
)

// SpanFixture is one span in scenario form. Agent and tool fixtures use
// Name/Start/End; handoffs use From/To/At; work spans use Name (optional)
// plus Start/End.
type SpanFixture struct {
	ID       string        `yaml:"id"`
	Kind     string        `yaml:"kind"`
	Name     string        `yaml:"name,omitempty"`
	From     string        `yaml:"from,omitempty"`
	To       string        `yaml:"to,omitempty"`
	Start    float64       `yaml:"start,omitempty"`
	End      float64       `yaml:"end,omitempty"`
	At       float64       `yaml:"at,omitempty"`
	Status   string        `yaml:"status,omitempty"`
	Children []SpanFixture `yaml:"children,omitempty"`
}

// Assertion type constants.
const (
	// AssertVisibleStates checks the exact visible state set at a
	// checkpoint.
	AssertVisibleStates = "visible_states"

	// AssertVisibleEdgeCount checks how many edge occurrences are
	// visible at a checkpoint.
	AssertVisibleEdgeCount = "visible_edge_count"

	// AssertActiveEdge checks the active edge identity at a checkpoint
	// ("" asserts no active edge).
	AssertActiveEdge = "active_edge"

	// AssertStateCount checks the total number of extracted states.
	AssertStateCount = "state_count"

	// AssertTransitionCount checks the aggregate count of one
	// transition key.
	AssertTransitionCount = "transition_count"
)

// Assertion validates one fact about the extraction or a checkpoint
// frame. At selects the checkpoint by cursor position, not index, so
// assertions stay readable next to the checkpoint list.
type Assertion struct {
	Type   string   `yaml:"type"`
	At     float64  `yaml:"at,omitempty"`
	States []string `yaml:"states,omitempty"`
	Edge   string   `yaml:"edge,omitempty"`
	From   string   `yaml:"from,omitempty"`
	To     string   `yaml:"to,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently weakening a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Forest materializes the scenario's span fixtures into a span forest
// anchored at the fixed base time.
func (s *Scenario) Forest() (span.Forest, error) {
	forest := make(span.Forest, 0, len(s.Spans))
	for i, f := range s.Spans {
		sp, err := buildSpan(f)
		if err != nil {
			return nil, fmt.Errorf("spans[%d]: %w", i, err)
		}
		forest = append(forest, sp)
	}
	return forest, nil
}

func buildSpan(f SpanFixture) (*span.Span, error) {
	var sp *span.Span
	switch f.Kind {
	case KindAgent:
		sp = testutil.AgentInvoke(f.ID, f.Name, testutil.Sec(f.Start), testutil.Sec(f.End))
	case KindTool:
		sp = testutil.ToolInvoke(f.ID, f.Name, testutil.Sec(f.Start), testutil.Sec(f.End))
	case KindHandoff:
		sp = testutil.Handoff(f.ID, f.From, f.To, testutil.Sec(f.At))
	case KindWork:
		sp = testutil.Work(f.ID, testutil.Sec(f.Start), testutil.Sec(f.End))
		if f.Name != "" {
			sp.Name = f.Name
		}
	default:
		return nil, fmt.Errorf("unknown span kind %q", f.Kind)
	}

	if f.Status != "" {
		sp.Status = span.Status(f.Status)
	}

	for i, child := range f.Children {
		built, err := buildSpan(child)
		if err != nil {
			return nil, fmt.Errorf("children[%d]: %w", i, err)
		}
		sp.Children = append(sp.Children, built)
	}
	return sp, nil
}

// CheckpointTime converts a checkpoint offset to an absolute cursor.
func CheckpointTime(offset float64) time.Time {
	return testutil.Base.Add(time.Duration(offset * float64(time.Second)))
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Spans) == 0 {
		return fmt.Errorf("spans list is required and must be non-empty")
	}
	if len(s.Checkpoints) == 0 {
		return fmt.Errorf("checkpoints list is required and must be non-empty")
	}

	for i, f := range s.Spans {
		if err := validateFixture(&f); err != nil {
			return fmt.Errorf("spans[%d]: %w", i, err)
		}
	}

	checkpoints := make(map[float64]bool, len(s.Checkpoints))
	for _, c := range s.Checkpoints {
		checkpoints[c] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(&a, checkpoints); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateFixture(f *SpanFixture) error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	switch f.Kind {
	case KindAgent, KindTool:
		if f.Name == "" {
			return fmt.Errorf("name is required for %s spans", f.Kind)
		}
	case KindHandoff:
		if f.From == "" || f.To == "" {
			return fmt.Errorf("from and to are required for handoff spans")
		}
	case KindWork:
		// no extra requirements
	default:
		return fmt.Errorf("unknown span kind %q", f.Kind)
	}

	for i, child := range f.Children {
		if err := validateFixture(&child); err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a *Assertion, checkpoints map[float64]bool) error {
	switch a.Type {
	case AssertVisibleStates, AssertVisibleEdgeCount, AssertActiveEdge:
		if !checkpoints[a.At] {
			return fmt.Errorf("at=%v does not match any checkpoint", a.At)
		}
	case AssertStateCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertTransitionCount:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("from and to are required for transition_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
