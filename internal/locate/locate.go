// Package locate reverse-maps a clicked state or transition back to the
// originating span in the trace, for drill-down from the rendered graph.
//
// "First" always means first in the same depth-first traversal order the
// extractor uses, so a drill-down lands on the span that contributed the
// state's first appearance. A miss is a recoverable "no drill-down
// available" outcome, never an error.
package locate

import (
	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/span"
)

// ForState returns the first span that contributed to the given state:
// the first agent-invoke span with a matching agent name for agent
// states, or the first tool-invoke span with a matching tool name for
// tool states. Returns nil when the identity does not parse or nothing
// matches.
func ForState(forest span.Forest, stateID string) *span.Span {
	kind, _, ok := markov.ParseStateID(stateID)
	if !ok {
		return nil
	}

	switch kind {
	case markov.StateKindAgent:
		return firstAgentInvoke(forest, stateID)
	case markov.StateKindTool:
		return firstToolInvoke(forest, stateID)
	default:
		return nil
	}
}

// ForEdge returns the first span that explains a transition between two
// states: the first matching tool-invoke when the target is a tool state,
// the first matching handoff for distinct agent endpoints, or the first
// agent-invoke of the target agent for a self-loop. Returns nil on a miss.
func ForEdge(forest span.Forest, from, to string) *span.Span {
	toKind, _, ok := markov.ParseStateID(to)
	if !ok {
		return nil
	}

	if toKind == markov.StateKindTool {
		return firstToolInvoke(forest, to)
	}
	if from != to {
		return firstHandoff(forest, from, to)
	}
	return firstAgentInvoke(forest, to)
}

func firstAgentInvoke(forest span.Forest, stateID string) *span.Span {
	return span.Find(forest, func(s *span.Span) bool {
		if s.Name != span.NameAgentInvoke {
			return false
		}
		name := s.Attr(span.AttrAgentName)
		return name != "" && markov.AgentStateID(name) == stateID
	})
}

func firstToolInvoke(forest span.Forest, stateID string) *span.Span {
	return span.Find(forest, func(s *span.Span) bool {
		if s.Name != span.NameToolInvoke {
			return false
		}
		name := s.Attr(span.AttrToolName)
		return name != "" && markov.ToolStateID(name) == stateID
	})
}

func firstHandoff(forest span.Forest, fromID, toID string) *span.Span {
	return span.Find(forest, func(s *span.Span) bool {
		if s.Name != span.NameHandoff {
			return false
		}
		from := s.Attr(span.AttrHandoffFrom)
		to := s.Attr(span.AttrHandoffTo)
		if from == "" || to == "" {
			return false
		}
		return markov.AgentStateID(from) == fromID && markov.AgentStateID(to) == toID
	})
}
