package playback

import (
	"sort"
	"time"

	"github.com/rhesis-ai/traceplay/internal/graph"
	"github.com/rhesis-ai/traceplay/internal/markov"
)

// EdgeOccurrence identifies one visible edge occurrence. LoopIndex is
// the occurrence index within its (from, to) key, assigned in
// timed-event order, matching the assembled edge records.
type EdgeOccurrence struct {
	From      string `json:"from"`
	To        string `json:"to"`
	LoopIndex int    `json:"loop_index"`
}

// ID returns the renderer-facing edge identity for this occurrence.
func (o EdgeOccurrence) ID() string {
	return graph.EdgeID(o.From, o.To, o.LoopIndex)
}

// Frame is the projection of "what has happened so far" at one cursor
// position: the inputs the external renderer needs to tag nodes and
// edges with visibility and to pulse exactly one active edge.
type Frame struct {
	// Cursor is the virtual time this frame was projected at.
	Cursor time.Time `json:"cursor"`

	// VisibleStates lists state identities with at least one appearance
	// at or before the cursor, in lexical order.
	VisibleStates []string `json:"visible_states"`

	// VisibleEdges lists edge occurrences revealed so far.
	VisibleEdges []EdgeOccurrence `json:"visible_edges"`

	// ActiveEdge is the occurrence of the latest transition at or before
	// the cursor, or nil when no transition has happened yet.
	ActiveEdge *EdgeOccurrence `json:"active_edge,omitempty"`
}

// Projector serves frames for one extraction. It indexes the timed logs
// once at construction and never mutates them afterwards, so Project is
// idempotent and safe to call at tick frequency.
type Projector struct {
	stateIDs    []string                             // lexical order
	appearances map[string][]time.Time               // per state, ascending
	keys        []markov.TransitionKey               // first-occurrence order
	occurrences map[markov.TransitionKey][]time.Time // per key, ascending
	events      []markov.TimedTransition             // global stable order
	eventIndex  []int                                // per event: its occurrence index within its key
}

// NewProjector indexes an extraction for projection.
func NewProjector(ex *markov.Extraction) *Projector {
	p := &Projector{
		stateIDs:    ex.StateIDs(),
		appearances: make(map[string][]time.Time),
		occurrences: make(map[markov.TransitionKey][]time.Time),
		events:      ex.TimedTransitions,
		eventIndex:  make([]int, len(ex.TimedTransitions)),
	}

	for _, app := range ex.TimedAppearances {
		p.appearances[app.StateID] = append(p.appearances[app.StateID], app.Timestamp)
	}

	perKey := make(map[markov.TransitionKey]int)
	for i, ev := range ex.TimedTransitions {
		k := ev.Key()
		if _, seen := perKey[k]; !seen {
			p.keys = append(p.keys, k)
		}
		p.eventIndex[i] = perKey[k]
		perKey[k]++
		p.occurrences[k] = append(p.occurrences[k], ev.Timestamp)
	}

	return p
}

// Project computes the frame for a cursor position. It reads but never
// mutates the projector's indexes, so frames for the same cursor are
// always identical.
func (p *Projector) Project(cursor time.Time) Frame {
	frame := Frame{Cursor: cursor}

	for _, id := range p.stateIDs {
		times := p.appearances[id]
		if len(times) > 0 && !times[0].After(cursor) {
			frame.VisibleStates = append(frame.VisibleStates, id)
		}
	}

	for _, k := range p.keys {
		// Occurrence i is visible once more than i occurrences have
		// happened.
		n := countAtOrBefore(p.occurrences[k], cursor)
		for i := 0; i < n; i++ {
			frame.VisibleEdges = append(frame.VisibleEdges, EdgeOccurrence{
				From: k.From, To: k.To, LoopIndex: i,
			})
		}
	}

	if idx := lastEventAtOrBefore(p.events, cursor); idx >= 0 {
		ev := p.events[idx]
		frame.ActiveEdge = &EdgeOccurrence{
			From: ev.From, To: ev.To, LoopIndex: p.eventIndex[idx],
		}
	}

	return frame
}

// countAtOrBefore returns how many timestamps in the ascending slice are
// at or before cursor.
func countAtOrBefore(times []time.Time, cursor time.Time) int {
	return sort.Search(len(times), func(i int) bool {
		return times[i].After(cursor)
	})
}

// lastEventAtOrBefore returns the index of the latest event with a
// timestamp at or before cursor, breaking timestamp ties toward the
// latest in stable order. Returns -1 when no event qualifies.
func lastEventAtOrBefore(events []markov.TimedTransition, cursor time.Time) int {
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp.After(cursor)
	})
	return idx - 1
}
