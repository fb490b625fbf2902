// Package span defines the instrumentation span forest consumed by the
// Markov extraction pipeline.
//
// Spans arrive fully materialized from the trace-fetching collaborator
// (a trace file on disk, or the dashboard backend). The engine treats the
// forest as read-only: nothing in this module mutates a span after it has
// been decoded.
//
// A span's Name is a classification tag, not a free-form label. The three
// tags the extractor understands are NameAgentInvoke, NameToolInvoke, and
// NameHandoff; everything else is generic work that only contributes its
// time bounds to the trace's global time range.
package span

import "time"

// Classification tags carried in Span.Name.
const (
	// NameAgentInvoke marks one call into a named autonomous component.
	NameAgentInvoke = "agent-invoke"

	// NameToolInvoke marks one call into a named callable capability,
	// typically issued by an agent.
	NameToolInvoke = "tool-invoke"

	// NameHandoff marks an explicit transfer of control from one named
	// agent to another.
	NameHandoff = "handoff"
)

// Attribute keys used by the classified span kinds.
const (
	// AttrAgentName carries the agent name on an agent-invoke span.
	AttrAgentName = "agent.name"

	// AttrToolName carries the tool name on a tool-invoke span.
	AttrToolName = "tool.name"

	// AttrHandoffFrom carries the source agent name on a handoff span.
	AttrHandoffFrom = "handoff.from"

	// AttrHandoffTo carries the destination agent name on a handoff span.
	AttrHandoffTo = "handoff.to"
)

// Status is the recorded outcome of a span.
type Status string

const (
	// StatusOK indicates the span completed without error.
	StatusOK Status = "ok"

	// StatusError indicates the span recorded an error outcome.
	StatusError Status = "error"
)

// Span is one recorded unit of work in a trace.
//
// EndTime >= StartTime is assumed but not enforced; consumers that
// aggregate durations must clamp via Duration() rather than subtracting
// the bounds themselves.
type Span struct {
	// ID uniquely identifies the span within its trace.
	ID string `json:"id"`

	// Name is the classification tag (NameAgentInvoke, NameToolInvoke,
	// NameHandoff, or anything else for generic work).
	Name string `json:"name"`

	// StartTime is the absolute instant the span began.
	StartTime time.Time `json:"start_time"`

	// EndTime is the absolute instant the span finished.
	EndTime time.Time `json:"end_time"`

	// Status is the recorded outcome. An empty status is treated as ok.
	Status Status `json:"status,omitempty"`

	// Attributes carries the classification payload (agent name, tool
	// name, handoff endpoints) plus any instrumentation extras.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Children are nested spans in document order. May be empty.
	Children []*Span `json:"children,omitempty"`
}

// Forest is an ordered set of root spans. Traces routinely have multiple
// roots because the instrumentation emits siblings for top-level work.
type Forest []*Span

// Attr returns the named attribute, or "" when absent.
func (s *Span) Attr(key string) string {
	if s.Attributes == nil {
		return ""
	}
	return s.Attributes[key]
}

// Duration returns the span's wall-clock duration, clamped to zero when
// the recorded bounds are out of order.
func (s *Span) Duration() time.Duration {
	d := s.EndTime.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// IsError reports whether the span recorded an error outcome.
func (s *Span) IsError() bool {
	return s.Status == StatusError
}

// Walk visits every span in the forest exactly once, depth-first in
// document order. This is the canonical traversal order: extraction and
// source location both use it, so "first matching span" means the same
// span everywhere.
func Walk(forest Forest, fn func(*Span)) {
	for _, s := range forest {
		walkSpan(s, fn)
	}
}

func walkSpan(s *Span, fn func(*Span)) {
	if s == nil {
		return
	}
	fn(s)
	for _, child := range s.Children {
		walkSpan(child, fn)
	}
}

// Find returns the first span in canonical traversal order for which
// pred returns true, or nil when nothing matches.
func Find(forest Forest, pred func(*Span) bool) *Span {
	for _, s := range forest {
		if found := findSpan(s, pred); found != nil {
			return found
		}
	}
	return nil
}

func findSpan(s *Span, pred func(*Span) bool) *Span {
	if s == nil {
		return nil
	}
	if pred(s) {
		return s
	}
	for _, child := range s.Children {
		if found := findSpan(child, pred); found != nil {
			return found
		}
	}
	return nil
}

// Count returns the total number of spans in the forest.
func Count(forest Forest) int {
	n := 0
	Walk(forest, func(*Span) { n++ })
	return n
}
