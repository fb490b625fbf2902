package trace

import (
	"time"

	"github.com/google/uuid"

	"github.com/rhesis-ai/traceplay/internal/span"
)

// SpanIDGenerator produces span IDs for generated traces.
// Implemented by UUIDGenerator (production) and the fixed generator in
// internal/testutil (tests).
type SpanIDGenerator interface {
	Generate() string
}

// UUIDGenerator produces random UUID span IDs.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Generator builds synthetic demo traces: a small multi-agent run with
// repeated tool calls, a handoff chain, and one failing tool, enough to
// exercise every shape the Markov view renders (self-loop stacks, error
// badges, placeholder-free handoffs).
type Generator struct {
	base  time.Time
	idGen SpanIDGenerator
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithBaseTime anchors the generated trace at a fixed instant instead of
// the current time.
func WithBaseTime(base time.Time) GeneratorOption {
	return func(g *Generator) { g.base = base }
}

// WithIDGenerator overrides the span-ID source.
func WithIDGenerator(idGen SpanIDGenerator) GeneratorOption {
	return func(g *Generator) { g.idGen = idGen }
}

// NewGenerator creates a Generator anchored at the current time with UUID
// span IDs.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		base:  time.Now().UTC().Truncate(time.Second),
		idGen: UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) at(offset time.Duration) time.Time {
	return g.base.Add(offset)
}

func (g *Generator) agent(name string, start, end time.Duration, children ...*span.Span) *span.Span {
	return &span.Span{
		ID:         g.idGen.Generate(),
		Name:       span.NameAgentInvoke,
		StartTime:  g.at(start),
		EndTime:    g.at(end),
		Status:     span.StatusOK,
		Attributes: map[string]string{span.AttrAgentName: name},
		Children:   children,
	}
}

func (g *Generator) tool(name string, start, end time.Duration, status span.Status) *span.Span {
	return &span.Span{
		ID:         g.idGen.Generate(),
		Name:       span.NameToolInvoke,
		StartTime:  g.at(start),
		EndTime:    g.at(end),
		Status:     status,
		Attributes: map[string]string{span.AttrToolName: name},
	}
}

func (g *Generator) handoff(from, to string, at time.Duration) *span.Span {
	return &span.Span{
		ID:        g.idGen.Generate(),
		Name:      span.NameHandoff,
		StartTime: g.at(at),
		EndTime:   g.at(at),
		Status:    span.StatusOK,
		Attributes: map[string]string{
			span.AttrHandoffFrom: from,
			span.AttrHandoffTo:   to,
		},
	}
}

// Demo produces the standard demo trace: triage hands off to research,
// research hammers a search tool three times (one failure) and fetches a
// page, then hands off to a writer that saves a draft.
func (g *Generator) Demo() *File {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }

	forest := span.Forest{
		g.agent("triage", sec(0), sec(4),
			g.tool("classify", sec(1), sec(2), span.StatusOK),
		),
		g.handoff("triage", "research", sec(4)),
		g.agent("research", sec(4), sec(16),
			g.tool("search", sec(5), sec(7), span.StatusOK),
			g.tool("search", sec(8), sec(9), span.StatusError),
			g.tool("search", sec(9), sec(11), span.StatusOK),
			g.tool("fetch-page", sec(12), sec(15), span.StatusOK),
		),
		g.handoff("research", "writer", sec(16)),
		g.agent("writer", sec(16), sec(24),
			g.tool("save-draft", sec(21), sec(23), span.StatusOK),
		),
		// Generic work that only widens the time range.
		&span.Span{
			ID:        g.idGen.Generate(),
			Name:      "session",
			StartTime: g.at(0),
			EndTime:   g.at(sec(25)),
			Status:    span.StatusOK,
		},
	}

	return &File{TraceID: "demo", Spans: forest}
}
