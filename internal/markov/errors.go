package markov

import "errors"

// ErrNoData is returned by surfaces when an extraction holds no agent or
// tool activity. Callers show a placeholder instead of an empty graph.
// Degenerate input is recoverable, never fatal to the host.
var ErrNoData = errors.New("trace contains no agent or tool activity")
