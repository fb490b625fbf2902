// Package harness executes YAML playback scenarios through the real
// extraction, assembly, and projection pipeline.
//
// A scenario is a span forest expressed as offsets from a fixed base
// time, a list of checkpoint cursors, and assertions about what is
// visible at each checkpoint. Scenarios double as golden-file fixtures:
// RunWithGolden snapshots the full extraction and per-checkpoint frames
// so regressions in any pipeline stage show up as a golden diff.
//
// Scenario timestamps are seconds from the fixed base, so scenario files
// read like the timelines they model and produce identical output on
// every run.
package harness
