package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/testutil"
)

func fixedDemo() *File {
	g := NewGenerator(
		WithBaseTime(testutil.Base),
		WithIDGenerator(testutil.NewFixedIDGenerator("span")),
	)
	return g.Demo()
}

func TestDemo_Deterministic(t *testing.T) {
	assert.Equal(t, fixedDemo(), fixedDemo())
}

func TestDemo_UUIDsByDefault(t *testing.T) {
	f := NewGenerator().Demo()

	seen := map[string]bool{}
	span.Walk(f.Spans, func(s *span.Span) {
		require.NotEmpty(t, s.ID)
		assert.False(t, seen[s.ID], "span IDs must be unique")
		seen[s.ID] = true
	})
}

func TestDemo_ExtractsFullGraph(t *testing.T) {
	ex := markov.Extract(fixedDemo().Spans)
	require.False(t, ex.Empty())

	assert.ElementsMatch(t, []string{
		"agent:triage", "agent:research", "agent:writer",
		"tool:classify", "tool:search", "tool:fetch-page", "tool:save-draft",
	}, ex.StateIDs())

	// Three search invocations, one of them failing.
	search := ex.States["tool:search"]
	require.NotNil(t, search)
	assert.Equal(t, 3, search.InvocationCount)
	assert.True(t, search.HasError)

	// The generic session span widens the range past the last agent.
	assert.True(t, ex.Range.End.Equal(testutil.Base.Add(25*time.Second)))
	assert.Equal(t, 25*time.Second, ex.Range.Duration())
}

func TestDemo_HandoffChain(t *testing.T) {
	ex := markov.Extract(fixedDemo().Spans)

	counts := map[markov.TransitionKey]int{}
	for _, tr := range ex.Transitions {
		counts[tr.Key()] = tr.Count
	}

	assert.Equal(t, 1, counts[markov.TransitionKey{From: "agent:triage", To: "agent:research"}])
	assert.Equal(t, 1, counts[markov.TransitionKey{From: "agent:research", To: "agent:writer"}])
	assert.Equal(t, 3, counts[markov.TransitionKey{From: "agent:research", To: "tool:search"}])
	assert.Equal(t, 3, counts[markov.TransitionKey{From: "tool:search", To: "agent:research"}])
}

func TestDemo_GenericSpansAreNotStates(t *testing.T) {
	ex := markov.Extract(fixedDemo().Spans)
	for id := range ex.States {
		assert.NotContains(t, id, "session")
	}
}
