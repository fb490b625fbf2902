package markov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/testutil"
)

func TestExtract_EmptyForest(t *testing.T) {
	ex := Extract(nil)

	assert.True(t, ex.Empty())
	assert.Empty(t, ex.States)
	assert.Empty(t, ex.Transitions)
	assert.Empty(t, ex.TimedTransitions)
	assert.Empty(t, ex.TimedAppearances)
	assert.True(t, ex.Range.IsZero(), "degenerate time range for zero spans")
}

func TestExtract_IgnoredSpansWidenTimeRange(t *testing.T) {
	forest := span.Forest{
		testutil.Work("w1", testutil.Sec(0), testutil.Sec(30)),
		testutil.AgentInvoke("a1", "triage", testutil.Sec(5), testutil.Sec(10)),
	}

	ex := Extract(forest)

	assert.Equal(t, testutil.Sec(0), ex.Range.Start)
	assert.Equal(t, testutil.Sec(30), ex.Range.End)
	assert.Len(t, ex.States, 1, "generic work spans contribute no states")
}

func TestExtract_TwoAgentHandoff(t *testing.T) {
	// agent A runs t=0..5, hands off to B at t=5, B runs t=5..10.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(5)),
		testutil.Handoff("h1", "A", "B", testutil.Sec(5)),
		testutil.AgentInvoke("a2", "B", testutil.Sec(5), testutil.Sec(10)),
	}

	ex := Extract(forest)

	require.Len(t, ex.States, 2)
	assert.Contains(t, ex.States, "agent:A")
	assert.Contains(t, ex.States, "agent:B")

	require.Len(t, ex.Transitions, 1)
	assert.Equal(t, Transition{From: "agent:A", To: "agent:B", Count: 1}, ex.Transitions[0])

	require.Len(t, ex.TimedTransitions, 1)
	assert.Equal(t, testutil.Sec(5), ex.TimedTransitions[0].Timestamp)
	assert.Equal(t, "h1", ex.TimedTransitions[0].SpanID)
}

func TestExtract_AgentToolCallReturn(t *testing.T) {
	// agent A runs t=0..20, tool "search" runs t=5..8 inside it.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(20)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(5), testutil.Sec(8)),
	}

	ex := Extract(forest)

	require.Len(t, ex.TimedTransitions, 2)
	call, ret := ex.TimedTransitions[0], ex.TimedTransitions[1]

	assert.Equal(t, "agent:A", call.From)
	assert.Equal(t, "tool:search", call.To)
	assert.Equal(t, testutil.Sec(5), call.Timestamp)

	assert.Equal(t, "tool:search", ret.From)
	assert.Equal(t, "agent:A", ret.To)
	assert.Equal(t, testutil.Sec(8), ret.Timestamp)

	require.Len(t, ex.Transitions, 2)
	assert.Equal(t, 1, ex.Transitions[0].Count)
	assert.Equal(t, 1, ex.Transitions[1].Count)
}

func TestExtract_CallerResolutionIsTemporalNotStructural(t *testing.T) {
	// The tool span is nested under agent A's span, but agent B started
	// more recently before the tool. The temporal rule picks B.
	forest := span.Forest{
		testutil.WithChildren(
			testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(20)),
			testutil.ToolInvoke("t1", "search", testutil.Sec(12), testutil.Sec(14)),
		),
		testutil.AgentInvoke("a2", "B", testutil.Sec(10), testutil.Sec(18)),
	}

	ex := Extract(forest)

	require.Len(t, ex.TimedTransitions, 2)
	assert.Equal(t, "agent:B", ex.TimedTransitions[0].From)
	assert.Equal(t, "tool:search", ex.TimedTransitions[0].To)
}

func TestExtract_ToolWithNoCaller(t *testing.T) {
	// No agent invocation precedes the tool: standalone state, zero
	// transitions referencing it.
	forest := span.Forest{
		testutil.ToolInvoke("t1", "search", testutil.Sec(0), testutil.Sec(2)),
		testutil.AgentInvoke("a1", "A", testutil.Sec(5), testutil.Sec(10)),
	}

	ex := Extract(forest)

	require.Contains(t, ex.States, "tool:search")
	assert.Empty(t, ex.Transitions)
	assert.Empty(t, ex.TimedTransitions)

	// The tool still appears independently once its appearance fires.
	require.Len(t, ex.TimedAppearances, 2)
	assert.Equal(t, "tool:search", ex.TimedAppearances[0].StateID)
}

func TestExtract_ToolStartingExactlyAtAgentStartHasNoCaller(t *testing.T) {
	// Caller resolution requires start strictly before the tool's start.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(5), testutil.Sec(10)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(5), testutil.Sec(6)),
	}

	ex := Extract(forest)

	assert.Empty(t, ex.TimedTransitions)
}

func TestExtract_RepeatedToolCalls(t *testing.T) {
	// Agent A calls tool "search" three times sequentially.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(30)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(2), testutil.Sec(4)),
		testutil.ToolInvoke("t2", "search", testutil.Sec(6), testutil.Sec(8)),
		testutil.ToolInvoke("t3", "search", testutil.Sec(10), testutil.Sec(12)),
	}

	ex := Extract(forest)

	require.Len(t, ex.Transitions, 2)
	assert.Equal(t, Transition{From: "agent:A", To: "tool:search", Count: 3}, ex.Transitions[0])
	assert.Equal(t, Transition{From: "tool:search", To: "agent:A", Count: 3}, ex.Transitions[1])

	st := ex.States["tool:search"]
	require.NotNil(t, st)
	assert.Equal(t, 3, st.InvocationCount)
	assert.Equal(t, 6*time.Second, st.TotalDuration)
}

func TestExtract_HandoffCreatesPlaceholderStates(t *testing.T) {
	// Neither endpoint was ever invoked: both exist as zero-activity
	// placeholder states.
	forest := span.Forest{
		testutil.Handoff("h1", "planner", "executor", testutil.Sec(3)),
	}

	ex := Extract(forest)

	require.Len(t, ex.States, 2)
	for _, id := range []string{"agent:planner", "agent:executor"} {
		st := ex.States[id]
		require.NotNil(t, st, id)
		assert.Equal(t, 0, st.InvocationCount)
		assert.True(t, st.FirstAppearance.IsZero())
	}
	assert.Empty(t, ex.TimedAppearances, "placeholders have no appearance events")
	require.Len(t, ex.TimedTransitions, 1)
}

func TestExtract_DuplicateAgentNamesAccumulate(t *testing.T) {
	// The same logical agent invoked repeatedly folds onto one state.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(3)),
		testutil.WithStatus(
			testutil.AgentInvoke("a2", "A", testutil.Sec(10), testutil.Sec(14)),
			span.StatusError,
		),
	}

	ex := Extract(forest)

	require.Len(t, ex.States, 1)
	st := ex.States["agent:A"]
	assert.Equal(t, 2, st.InvocationCount)
	assert.Equal(t, 7*time.Second, st.TotalDuration)
	assert.True(t, st.HasError)
	assert.Equal(t, testutil.Sec(0), st.FirstAppearance)
	assert.Len(t, ex.TimedAppearances, 2)
}

func TestExtract_MalformedSpansSkippedButWidenRange(t *testing.T) {
	missingName := &span.Span{
		ID:        "bad1",
		Name:      span.NameAgentInvoke,
		StartTime: testutil.Sec(0),
		EndTime:   testutil.Sec(40),
		// no agent.name attribute
	}
	forest := span.Forest{
		missingName,
		testutil.AgentInvoke("a1", "A", testutil.Sec(5), testutil.Sec(10)),
	}

	ex := Extract(forest)

	assert.Len(t, ex.States, 1)
	assert.Equal(t, testutil.Sec(0), ex.Range.Start)
	assert.Equal(t, testutil.Sec(40), ex.Range.End)
}

func TestExtract_NegativeDurationClampedToZero(t *testing.T) {
	backwards := testutil.AgentInvoke("a1", "A", testutil.Sec(10), testutil.Sec(4))

	ex := Extract(span.Forest{backwards})

	st := ex.States["agent:A"]
	require.NotNil(t, st)
	assert.Equal(t, time.Duration(0), st.TotalDuration)
	assert.Equal(t, 1, st.InvocationCount)
}

func TestExtract_UnicodeEqualNamesShareAState(t *testing.T) {
	// "é" composed vs decomposed: NFC normalization collapses them.
	composed := testutil.AgentInvoke("a1", "réviseur", testutil.Sec(0), testutil.Sec(2))
	decomposed := testutil.AgentInvoke("a2", "réviseur", testutil.Sec(4), testutil.Sec(6))

	ex := Extract(span.Forest{composed, decomposed})

	require.Len(t, ex.States, 1)
	assert.Equal(t, 2, ex.States[AgentStateID("réviseur")].InvocationCount)
}

func TestExtract_Deterministic(t *testing.T) {
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(20)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(5), testutil.Sec(8)),
		testutil.Handoff("h1", "A", "B", testutil.Sec(20)),
		testutil.AgentInvoke("a2", "B", testutil.Sec(20), testutil.Sec(25)),
		testutil.ToolInvoke("t2", "fetch", testutil.Sec(21), testutil.Sec(23)),
	}

	first := Extract(forest)
	second := Extract(forest)

	assert.Equal(t, first.States, second.States)
	assert.Equal(t, first.Transitions, second.Transitions)
	assert.Equal(t, first.TimedTransitions, second.TimedTransitions)
	assert.Equal(t, first.TimedAppearances, second.TimedAppearances)
	assert.Equal(t, first.Range, second.Range)
}

func TestExtract_CountConsistency(t *testing.T) {
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(30)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(2), testutil.Sec(4)),
		testutil.ToolInvoke("t2", "search", testutil.Sec(6), testutil.Sec(8)),
		testutil.ToolInvoke("t3", "fetch", testutil.Sec(10), testutil.Sec(12)),
		testutil.Handoff("h1", "A", "B", testutil.Sec(30)),
	}

	ex := Extract(forest)

	byKey := make(map[TransitionKey]int)
	for _, ev := range ex.TimedTransitions {
		byKey[ev.Key()]++
	}
	require.Len(t, ex.Transitions, len(byKey))
	for _, tr := range ex.Transitions {
		assert.Equal(t, byKey[tr.Key()], tr.Count,
			"aggregate count must match timed event count for %v", tr.Key())
	}
}

func TestExtract_TimedLogsSortedAndWithinRange(t *testing.T) {
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(30)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(20), testutil.Sec(25)),
		testutil.ToolInvoke("t2", "fetch", testutil.Sec(5), testutil.Sec(10)),
	}

	ex := Extract(forest)

	for i := 1; i < len(ex.TimedTransitions); i++ {
		assert.False(t, ex.TimedTransitions[i].Timestamp.Before(ex.TimedTransitions[i-1].Timestamp),
			"timed transitions must be sorted ascending")
	}
	for _, ev := range ex.TimedTransitions {
		assert.False(t, ev.Timestamp.Before(ex.Range.Start))
		assert.False(t, ev.Timestamp.After(ex.Range.End))
	}
	for i := 1; i < len(ex.TimedAppearances); i++ {
		assert.False(t, ex.TimedAppearances[i].Timestamp.Before(ex.TimedAppearances[i-1].Timestamp),
			"timed appearances must be sorted ascending")
	}
}

func TestResolveCaller_TieOnGreatestStart(t *testing.T) {
	agents := []agentInvocation{
		{name: "A", start: testutil.Sec(0)},
		{name: "B", start: testutil.Sec(0)},
	}

	name, ok := resolveCaller(agents, testutil.Sec(1))
	require.True(t, ok)
	assert.Equal(t, "B", name, "ties resolve to the latest in traversal order")
}
