// Package markov extracts a directed multigraph of agent and tool states
// from an instrumentation span forest.
//
// # Extraction Model
//
// Extract walks the forest exactly once, classifies each span (agent
// invocation, tool invocation, handoff, or ignored), and folds the result
// into four immutable outputs:
//
//   - a state table keyed by "agent:<name>" / "tool:<name>"
//   - aggregate transitions, one per ordered (from, to) pair with a count
//   - a time-ordered log of individual transition occurrences
//   - a time-ordered log of state appearance events
//
// plus the trace's global time range. The outputs are a pure function of
// the input forest: running Extract twice on the same forest yields
// structurally identical results.
//
// # Caller Resolution
//
// The calling agent of a tool invocation starting at time t is the agent
// invocation with the greatest start time strictly before t. The rule is
// purely temporal and deliberately ignores the tree's parent/child
// structure: the instrumentation does not guarantee a tool span is nested
// under its logical caller's span. A tool with no preceding agent
// invocation contributes a standalone state and no transitions.
//
// # Ownership
//
// An Extraction is owned by the caller that produced it and is never
// mutated after Extract returns. Downstream consumers (graph assembly,
// playback projection) only read it, so one extraction can safely back
// any number of concurrent projections.
package markov
