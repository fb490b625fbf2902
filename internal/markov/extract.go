package markov

import (
	"sort"
	"time"

	"github.com/rhesis-ai/traceplay/internal/span"
)

// agentInvocation is one classified agent-invoke span.
type agentInvocation struct {
	name   string
	start  time.Time
	end    time.Time
	spanID string
	isErr  bool
	dur    time.Duration
}

// toolInvocation is one classified tool-invoke span.
type toolInvocation struct {
	name   string
	start  time.Time
	end    time.Time
	spanID string
	isErr  bool
	dur    time.Duration
}

// handoffEvent is one classified handoff span.
type handoffEvent struct {
	from      string
	to        string
	timestamp time.Time
	spanID    string
}

// Extract converts a span forest into the state table, transition streams,
// and time range that back the Markov view.
//
// Extract is a pure function of the forest: no external state is read or
// written, and the same forest always yields structurally identical
// output. Malformed spans (a classified kind missing its name attribute)
// are skipped for states and transitions but still widen the global time
// range; nothing makes Extract fail.
func Extract(forest span.Forest) *Extraction {
	var (
		agents   []agentInvocation
		tools    []toolInvocation
		handoffs []handoffEvent
		rng      TimeRange
		bounded  bool
	)

	// Single pass: classify every span and fold its time bounds.
	span.Walk(forest, func(s *span.Span) {
		if !bounded {
			rng = TimeRange{Start: s.StartTime, End: s.EndTime}
			bounded = true
		} else {
			if s.StartTime.Before(rng.Start) {
				rng.Start = s.StartTime
			}
			if s.EndTime.After(rng.End) {
				rng.End = s.EndTime
			}
		}

		switch s.Name {
		case span.NameAgentInvoke:
			name := s.Attr(span.AttrAgentName)
			if name == "" {
				return // malformed: time bounds only
			}
			agents = append(agents, agentInvocation{
				name:   name,
				start:  s.StartTime,
				end:    s.EndTime,
				spanID: s.ID,
				isErr:  s.IsError(),
				dur:    s.Duration(),
			})

		case span.NameToolInvoke:
			name := s.Attr(span.AttrToolName)
			if name == "" {
				return
			}
			tools = append(tools, toolInvocation{
				name:   name,
				start:  s.StartTime,
				end:    s.EndTime,
				spanID: s.ID,
				isErr:  s.IsError(),
				dur:    s.Duration(),
			})

		case span.NameHandoff:
			from := s.Attr(span.AttrHandoffFrom)
			to := s.Attr(span.AttrHandoffTo)
			if from == "" || to == "" {
				return
			}
			handoffs = append(handoffs, handoffEvent{
				from:      from,
				to:        to,
				timestamp: s.StartTime,
				spanID:    s.ID,
			})
		}
	})

	// Stable sorts keep traversal order as the tie-break, which makes
	// caller resolution and the timed logs deterministic.
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].start.Before(agents[j].start)
	})
	sort.SliceStable(tools, func(i, j int) bool {
		return tools[i].start.Before(tools[j].start)
	})

	ex := &Extraction{
		States: make(map[string]*State),
		Range:  rng,
	}

	// Agent invocations: fold states, emit appearance events.
	for _, a := range agents {
		st := ex.ensureState(AgentStateID(a.name), StateKindAgent, a.name)
		foldInvocation(st, a.start, a.dur, a.isErr)
		ex.TimedAppearances = append(ex.TimedAppearances, TimedAppearance{
			StateID:   st.ID,
			Timestamp: a.start,
			SpanID:    a.spanID,
		})
	}

	// Tool invocations: fold states, emit appearance events, and emit the
	// call/return transition pair when a caller resolves.
	for _, tl := range tools {
		st := ex.ensureState(ToolStateID(tl.name), StateKindTool, tl.name)
		foldInvocation(st, tl.start, tl.dur, tl.isErr)
		ex.TimedAppearances = append(ex.TimedAppearances, TimedAppearance{
			StateID:   st.ID,
			Timestamp: tl.start,
			SpanID:    tl.spanID,
		})

		caller, ok := resolveCaller(agents, tl.start)
		if !ok {
			continue // standalone tool state, no transitions
		}
		callerID := AgentStateID(caller)
		ex.ensureState(callerID, StateKindAgent, caller)
		ex.TimedTransitions = append(ex.TimedTransitions,
			TimedTransition{From: callerID, To: st.ID, Timestamp: tl.start, SpanID: tl.spanID},
			TimedTransition{From: st.ID, To: callerID, Timestamp: tl.end, SpanID: tl.spanID},
		)
	}

	// Handoffs: emit one transition occurrence each, creating placeholder
	// endpoint states when the agents were never otherwise invoked.
	for _, h := range handoffs {
		fromID := AgentStateID(h.from)
		toID := AgentStateID(h.to)
		ex.ensureState(fromID, StateKindAgent, h.from)
		ex.ensureState(toID, StateKindAgent, h.to)
		ex.TimedTransitions = append(ex.TimedTransitions, TimedTransition{
			From:      fromID,
			To:        toID,
			Timestamp: h.timestamp,
			SpanID:    h.spanID,
		})
	}

	// Stable timestamp sorts enable linear or binary-search projection.
	sort.SliceStable(ex.TimedTransitions, func(i, j int) bool {
		return ex.TimedTransitions[i].Timestamp.Before(ex.TimedTransitions[j].Timestamp)
	})
	sort.SliceStable(ex.TimedAppearances, func(i, j int) bool {
		return ex.TimedAppearances[i].Timestamp.Before(ex.TimedAppearances[j].Timestamp)
	})

	ex.Transitions = aggregate(ex.TimedTransitions)

	return ex
}

// ensureState returns the state for id, creating a zero-activity state on
// first reference.
func (e *Extraction) ensureState(id string, kind StateKind, name string) *State {
	if st, ok := e.States[id]; ok {
		return st
	}
	st := &State{ID: id, Kind: kind, Name: name}
	e.States[id] = st
	return st
}

// foldInvocation accumulates one invocation into its state.
func foldInvocation(st *State, start time.Time, dur time.Duration, isErr bool) {
	st.InvocationCount++
	st.TotalDuration += dur
	if isErr {
		st.HasError = true
	}
	if st.FirstAppearance.IsZero() || start.Before(st.FirstAppearance) {
		st.FirstAppearance = start
	}
}

// resolveCaller returns the name of the agent invocation with the greatest
// start time strictly before t. The agents slice must be stably sorted by
// start time ascending; ties on the greatest start resolve to the latest
// invocation in traversal order.
func resolveCaller(agents []agentInvocation, t time.Time) (string, bool) {
	// First index whose start is not before t; everything left of it is a
	// candidate, and the rightmost candidate wins.
	idx := sort.Search(len(agents), func(i int) bool {
		return !agents[i].start.Before(t)
	})
	if idx == 0 {
		return "", false
	}
	return agents[idx-1].name, true
}

// aggregate groups the timed transition log by (from, to) key, preserving
// first-occurrence order. Counts are exact: one per timed event.
func aggregate(events []TimedTransition) []Transition {
	counts := make(map[TransitionKey]int)
	var order []TransitionKey
	for _, ev := range events {
		k := ev.Key()
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	transitions := make([]Transition, 0, len(order))
	for _, k := range order {
		transitions = append(transitions, Transition{From: k.From, To: k.To, Count: counts[k]})
	}
	return transitions
}
