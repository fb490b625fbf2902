package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callReturnScenario() *Scenario {
	return &Scenario{
		Name:        "call-return",
		Description: "one agent, one tool",
		Spans: []SpanFixture{
			{
				ID: "a1", Kind: KindAgent, Name: "researcher", Start: 0, End: 10,
				Children: []SpanFixture{
					{ID: "t1", Kind: KindTool, Name: "search", Start: 2, End: 4},
				},
			},
		},
		Checkpoints: []float64{1, 4},
	}
}

func TestRun_ProjectsEveryCheckpoint(t *testing.T) {
	result, err := Run(callReturnScenario())
	require.NoError(t, err)

	require.Len(t, result.Frames, 2)
	assert.Equal(t, 1.0, result.Frames[0].Offset)
	assert.Equal(t, []string{"agent:researcher"}, result.Frames[0].Frame.VisibleStates)
	assert.Len(t, result.Frames[1].Frame.VisibleEdges, 2)

	assert.Len(t, result.Graph.Nodes, 2)
	assert.Len(t, result.Graph.Edges, 2)
}

func TestRun_BadFixture(t *testing.T) {
	s := callReturnScenario()
	s.Spans[0].Kind = "llm"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown span kind")
}

func TestEvaluate_PassingAssertions(t *testing.T) {
	s := callReturnScenario()
	s.Assertions = []Assertion{
		{Type: AssertStateCount, Count: 2},
		{Type: AssertTransitionCount, From: "agent:researcher", To: "tool:search", Count: 1},
		{Type: AssertVisibleStates, At: 1, States: []string{"agent:researcher"}},
		{Type: AssertVisibleEdgeCount, At: 4, Count: 2},
		{Type: AssertActiveEdge, At: 4, Edge: "tool:search->agent:researcher"},
		{Type: AssertActiveEdge, At: 1, Edge: ""},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Empty(t, result.Evaluate())
}

func TestEvaluate_FailingAssertions(t *testing.T) {
	s := callReturnScenario()
	s.Assertions = []Assertion{
		{Type: AssertStateCount, Count: 3},
		{Type: AssertVisibleStates, At: 1, States: []string{"agent:researcher", "tool:search"}},
		{Type: AssertActiveEdge, At: 4, Edge: "agent:researcher->tool:search"},
		{Type: AssertTransitionCount, From: "agent:researcher", To: "tool:fetch", Count: 1},
	}

	result, err := Run(s)
	require.NoError(t, err)

	failures := result.Evaluate()
	require.Len(t, failures, 4)
	assert.Contains(t, failures[0].Error(), "2 states extracted, want 3")
	assert.Contains(t, failures[1].Error(), "visible states")
	assert.Contains(t, failures[2].Error(), "active edge")
	assert.Contains(t, failures[3].Error(), "count 0, want 1")
}

func TestEvaluate_MissingCheckpoint(t *testing.T) {
	s := callReturnScenario()
	s.Assertions = []Assertion{
		{Type: AssertVisibleStates, At: 7, States: []string{"agent:researcher"}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	failures := result.Evaluate()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "no checkpoint at t=7")
}
