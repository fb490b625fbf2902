package markov

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// StateKind distinguishes agent states from tool states.
type StateKind int

const (
	// StateKindAgent is a state aggregating invocations of one named agent.
	StateKindAgent StateKind = iota

	// StateKindTool is a state aggregating invocations of one named tool.
	StateKindTool
)

// String returns the string representation of the StateKind.
func (k StateKind) String() string {
	switch k {
	case StateKindAgent:
		return "agent"
	case StateKindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// State identity prefixes. Agent and tool states are kept distinct even
// when an agent and a tool share a human-readable name.
const (
	agentPrefix = "agent:"
	toolPrefix  = "tool:"
)

// AgentStateID returns the state identity for an agent name.
// Names are NFC normalized so Unicode-equal names key the same state.
func AgentStateID(name string) string {
	return agentPrefix + norm.NFC.String(name)
}

// ToolStateID returns the state identity for a tool name.
// Names are NFC normalized so Unicode-equal names key the same state.
func ToolStateID(name string) string {
	return toolPrefix + norm.NFC.String(name)
}

// ParseStateID splits a state identity into its kind and name.
// Returns ok=false for identities that carry neither prefix.
func ParseStateID(id string) (kind StateKind, name string, ok bool) {
	switch {
	case strings.HasPrefix(id, agentPrefix):
		return StateKindAgent, strings.TrimPrefix(id, agentPrefix), true
	case strings.HasPrefix(id, toolPrefix):
		return StateKindTool, strings.TrimPrefix(id, toolPrefix), true
	default:
		return 0, "", false
	}
}

// State is an aggregated node in the derived graph representing all
// invocations of one agent or tool name.
//
// States are created lazily the first time an invocation or handoff
// references them and are folded into as more contributing spans arrive.
// They are never deleted.
type State struct {
	// ID is the composite identity ("agent:<name>" or "tool:<name>").
	ID string

	// Kind distinguishes agent states from tool states.
	Kind StateKind

	// Name is the human-readable name without the kind prefix.
	Name string

	// InvocationCount is the number of invocations folded into this state.
	// Zero for placeholder states referenced only by handoffs.
	InvocationCount int

	// TotalDuration is the sum of clamped durations of its invocations.
	TotalDuration time.Duration

	// HasError is true when any contributing span recorded an error.
	HasError bool

	// FirstAppearance is the earliest start time over its invocations.
	// Zero for placeholder states.
	FirstAppearance time.Time
}

// TransitionKey is the ordered (from, to) pair identifying an aggregate
// transition.
type TransitionKey struct {
	From string
	To   string
}

// SelfLoop reports whether the key is a self-transition, produced by a
// handoff whose endpoints name the same agent.
func (k TransitionKey) SelfLoop() bool {
	return k.From == k.To
}

// Transition is an aggregate directed edge: Count individual occurrences
// of the same ordered (from, to) pair.
type Transition struct {
	From  string
	To    string
	Count int
}

// Key returns the transition's (from, to) key.
func (t Transition) Key() TransitionKey {
	return TransitionKey{From: t.From, To: t.To}
}

// TimedTransition is one individual transition occurrence, used to drive
// playback. The aggregate Transition's Count equals the number of
// TimedTransitions sharing its (from, to) key.
type TimedTransition struct {
	From      string
	To        string
	Timestamp time.Time
	SpanID    string
}

// Key returns the occurrence's (from, to) key.
func (t TimedTransition) Key() TransitionKey {
	return TransitionKey{From: t.From, To: t.To}
}

// TimedAppearance is one state appearance event, one per invocation. A
// state may have many appearance events (repeat invocations); it becomes
// visible once its earliest event is at or before the playback cursor.
type TimedAppearance struct {
	StateID   string
	Timestamp time.Time
	SpanID    string
}

// TimeRange is the trace's global wall-clock window: the minimum start
// time and maximum end time over all spans, ignored spans included.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports the degenerate range produced when no spans exist.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Duration returns the trace duration, clamped to zero.
func (r TimeRange) Duration() time.Duration {
	d := r.End.Sub(r.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Clamp bounds t to [Start, End].
func (r TimeRange) Clamp(t time.Time) time.Time {
	if t.Before(r.Start) {
		return r.Start
	}
	if t.After(r.End) {
		return r.End
	}
	return t
}

// Extraction is the complete, immutable output of one Extract run.
type Extraction struct {
	// States maps state identity to its aggregated state.
	States map[string]*State

	// Transitions are the aggregate edges in first-occurrence order.
	Transitions []Transition

	// TimedTransitions is the individual occurrence log, stably sorted
	// by timestamp ascending.
	TimedTransitions []TimedTransition

	// TimedAppearances is the appearance event log, stably sorted by
	// timestamp ascending.
	TimedAppearances []TimedAppearance

	// Range is the trace's global time window.
	Range TimeRange
}

// Empty reports the degenerate "no data" condition: no agent or tool
// activity was found. Surfaces should show a placeholder for this rather
// than rendering an empty-but-valid graph.
func (e *Extraction) Empty() bool {
	return len(e.States) == 0
}

// StateIDs returns all state identities in lexical order. The sort gives
// downstream consumers a deterministic iteration order over the state map.
func (e *Extraction) StateIDs() []string {
	ids := make([]string, 0, len(e.States))
	for id := range e.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
