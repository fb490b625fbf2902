// Package trace loads already-materialized span forests from trace files
// and validates them against the trace-file schema.
//
// A trace file is one JSON document holding one finite span forest. There
// is no pagination, streaming, or storage here: files are the hand-off
// format between the trace-fetching collaborator and this engine, read
// fully into memory per invocation.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rhesis-ai/traceplay/internal/span"
)

// File is one decoded trace file.
type File struct {
	// TraceID identifies the trace. Defaults to the file's base name
	// when the document omits it.
	TraceID string `json:"trace_id,omitempty"`

	// Spans is the root span forest.
	Spans span.Forest `json:"spans"`
}

// Load reads and decodes a single trace file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace file %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode trace file %s: %w", path, err)
	}

	if f.TraceID == "" {
		f.TraceID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &f, nil
}

// LoadDir loads every .json trace file in a directory, sorted by trace ID
// for deterministic listing. Non-trace files are skipped; a directory with
// no trace files is valid and yields an empty slice.
func LoadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read trace directory %s: %w", dir, err)
	}

	var files []*File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		f, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].TraceID < files[j].TraceID
	})
	return files, nil
}

// Write serializes a trace file as indented JSON. Used by the demo
// generator; the engine itself never persists anything.
func Write(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trace file: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace file %s: %w", path, err)
	}
	return nil
}
