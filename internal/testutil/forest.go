// Package testutil provides deterministic helpers for tests: span-forest
// builders anchored at a fixed base time and a fixed span-ID generator.
package testutil

import (
	"time"

	"github.com/rhesis-ai/traceplay/internal/span"
)

// Base is the fixed instant test forests are anchored to. Scenario
// timestamps are expressed as offsets from Base so tests read like the
// timelines they model ("agent A runs t=0..5s").
var Base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// At returns Base + offset.
func At(offset time.Duration) time.Time {
	return Base.Add(offset)
}

// Sec returns Base + n seconds.
func Sec(n float64) time.Time {
	return Base.Add(time.Duration(n * float64(time.Second)))
}

// AgentInvoke builds an agent-invoke span.
func AgentInvoke(id, agent string, start, end time.Time) *span.Span {
	return &span.Span{
		ID:         id,
		Name:       span.NameAgentInvoke,
		StartTime:  start,
		EndTime:    end,
		Status:     span.StatusOK,
		Attributes: map[string]string{span.AttrAgentName: agent},
	}
}

// ToolInvoke builds a tool-invoke span.
func ToolInvoke(id, tool string, start, end time.Time) *span.Span {
	return &span.Span{
		ID:         id,
		Name:       span.NameToolInvoke,
		StartTime:  start,
		EndTime:    end,
		Status:     span.StatusOK,
		Attributes: map[string]string{span.AttrToolName: tool},
	}
}

// Handoff builds a handoff span at a single instant.
func Handoff(id, from, to string, at time.Time) *span.Span {
	return &span.Span{
		ID:        id,
		Name:      span.NameHandoff,
		StartTime: at,
		EndTime:   at,
		Status:    span.StatusOK,
		Attributes: map[string]string{
			span.AttrHandoffFrom: from,
			span.AttrHandoffTo:   to,
		},
	}
}

// Work builds a generic, unclassified span. It contributes only its time
// bounds to the extraction.
func Work(id string, start, end time.Time) *span.Span {
	return &span.Span{
		ID:        id,
		Name:      "llm-call",
		StartTime: start,
		EndTime:   end,
		Status:    span.StatusOK,
	}
}

// WithStatus overrides a span's status and returns it, for chaining in
// fixture literals.
func WithStatus(s *span.Span, status span.Status) *span.Span {
	s.Status = status
	return s
}

// WithChildren attaches children and returns the parent, for chaining in
// fixture literals.
func WithChildren(s *span.Span, children ...*span.Span) *span.Span {
	s.Children = append(s.Children, children...)
	return s
}
