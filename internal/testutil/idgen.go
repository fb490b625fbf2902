package testutil

import "fmt"

// FixedIDGenerator produces sequential, predictable span IDs for tests.
//
// The production generator uses UUIDs; tests use this instead so golden
// files and assertions stay stable across runs.
type FixedIDGenerator struct {
	prefix string
	next   int
}

// NewFixedIDGenerator creates a generator producing "<prefix>-0001",
// "<prefix>-0002", and so on.
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next sequential ID.
func (g *FixedIDGenerator) Generate() string {
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next)
}
