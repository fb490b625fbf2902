// Package server exposes extracted graphs and playback frames to the
// external dashboard renderer: a small JSON API for the one-shot shapes
// (trace list, assembled graph, single frames) and a websocket endpoint
// that runs a playback clock per session and streams frames as they tick.
package server

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/rhesis-ai/traceplay/internal/graph"
	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/playback"
	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/trace"
)

// Entry holds everything the server needs for one trace: the raw forest
// for the locator, plus the extraction, graph, and projector computed once
// at load time. Entries are immutable after construction; any number of
// sessions can share one.
type Entry struct {
	TraceID    string
	Spans      span.Forest
	Extraction *markov.Extraction
	Graph      *graph.Graph
	Projector  *playback.Projector
}

// Registry is the in-memory trace catalog. Traces are loaded once at
// startup; there is no persistence or reload.
type Registry struct {
	entries map[string]*Entry
	ids     []string
}

// NewRegistry builds an Entry per trace file. Traces with no agent or
// tool activity are skipped with a warning: they have no graph to serve.
func NewRegistry(files []*trace.File) *Registry {
	r := &Registry{entries: make(map[string]*Entry)}

	for _, f := range files {
		ex := markov.Extract(f.Spans)
		if ex.Empty() {
			slog.Warn("skipping trace", "trace_id", f.TraceID, "reason", markov.ErrNoData)
			continue
		}
		if _, dup := r.entries[f.TraceID]; dup {
			slog.Warn("skipping trace with duplicate id", "trace_id", f.TraceID)
			continue
		}
		r.entries[f.TraceID] = &Entry{
			TraceID:    f.TraceID,
			Spans:      f.Spans,
			Extraction: ex,
			Graph:      graph.Assemble(ex),
			Projector:  playback.NewProjector(ex),
		}
		r.ids = append(r.ids, f.TraceID)
	}

	sort.Strings(r.ids)
	return r
}

// LoadRegistry loads every trace file in a directory into a registry.
func LoadRegistry(dir string) (*Registry, error) {
	files, err := trace.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load trace directory: %w", err)
	}
	return NewRegistry(files), nil
}

// IDs returns the trace IDs in sorted order.
func (r *Registry) IDs() []string {
	return r.ids
}

// Get returns the entry for a trace ID.
func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Len returns the number of loaded traces.
func (r *Registry) Len() int {
	return len(r.entries)
}
