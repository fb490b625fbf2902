package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhesis-ai/traceplay/internal/markov"
	"github.com/rhesis-ai/traceplay/internal/span"
	"github.com/rhesis-ai/traceplay/internal/testutil"
	"github.com/rhesis-ai/traceplay/internal/trace"
)

// demoTracePath writes the deterministic demo trace into a temp dir and
// returns its path.
func demoTracePath(t *testing.T) string {
	t.Helper()
	g := trace.NewGenerator(
		trace.WithBaseTime(testutil.Base),
		trace.WithIDGenerator(testutil.NewFixedIDGenerator("span")),
	)
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, trace.Write(path, g.Demo()))
	return path
}

// emptyTracePath writes a trace with no classified spans.
func emptyTracePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"spans": []}`), 0o644))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateCommand_ValidFile(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), demoTracePath(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Trace file valid")
}

func TestValidateCommand_InvalidFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"spans": [{"name": "x"}]}`), 0o644))

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, trace.ErrCodeSchema, resp.Error.Code)
}

func TestValidateCommand_MissingFile(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}),
		filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, trace.ErrCodeUnreadable)
}

func TestExtractCommand_Text(t *testing.T) {
	out, err := execute(t, NewExtractCommand(&RootOptions{Format: "text"}), demoTracePath(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Trace demo (25.0s)")
	assert.Contains(t, out, "agent:research")
	assert.Contains(t, out, "tool:search")
	assert.Contains(t, out, "3x")
	assert.Contains(t, out, "[error]")
	assert.Contains(t, out, "agent:triage -> agent:research")
}

func TestExtractCommand_JSON(t *testing.T) {
	out, err := execute(t, NewExtractCommand(&RootOptions{Format: "json"}), demoTracePath(t))
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExtractResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo", resp.Data.TraceID)
	assert.Len(t, resp.Data.Graph.Nodes, 7)
	assert.Len(t, resp.Data.LayoutNodes, 7)
}

func TestExtractCommand_NoData(t *testing.T) {
	_, err := execute(t, NewExtractCommand(&RootOptions{Format: "text"}), emptyTracePath(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExtractCommand_MissingFile(t *testing.T) {
	_, err := execute(t, NewExtractCommand(&RootOptions{Format: "text"}),
		filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlayCommand_Text(t *testing.T) {
	out, err := execute(t, NewPlayCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--steps", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace demo at 1x (5 frames)")
	assert.Contains(t, out, "t=25s")
	assert.Contains(t, out, "states=7")
}

func TestPlayCommand_JSON(t *testing.T) {
	out, err := execute(t, NewPlayCommand(&RootOptions{Format: "json"}),
		demoTracePath(t), "--steps", "10", "--speed", "2")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2.0, resp.Data.Speed)
	require.Len(t, resp.Data.Frames, 10)

	last := resp.Data.Frames[len(resp.Data.Frames)-1]
	assert.Len(t, last.VisibleStates, 7, "final frame shows the whole graph")
}

func TestSimulate_FinalFrameReachesRangeEnd(t *testing.T) {
	// A 7s trace with 3 steps truncates the per-step delta; the return
	// transition stamped exactly at the range end must still make it into
	// the final frame.
	forest := span.Forest{
		testutil.AgentInvoke("a1", "A", testutil.Sec(0), testutil.Sec(7)),
		testutil.ToolInvoke("t1", "search", testutil.Sec(5), testutil.Sec(7)),
	}
	ex := markov.Extract(forest)

	frames := simulate(ex, 1, 3)
	require.Len(t, frames, 3)

	last := frames[len(frames)-1]
	assert.True(t, last.Cursor.Equal(ex.Range.End))
	assert.Len(t, last.VisibleEdges, 2)
}

func TestPlayCommand_RejectsBadFlags(t *testing.T) {
	_, err := execute(t, NewPlayCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--speed", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewPlayCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--steps", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLocateCommand_State(t *testing.T) {
	out, err := execute(t, NewLocateCommand(&RootOptions{Format: "json"}),
		demoTracePath(t), "--state", "tool:search")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   LocateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "tool-invoke", resp.Data.Name)
	assert.NotEmpty(t, resp.Data.SpanID)
}

func TestLocateCommand_Edge(t *testing.T) {
	out, err := execute(t, NewLocateCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--edge", "agent:triage->agent:research")
	require.NoError(t, err)
	assert.Contains(t, out, "handoff")
}

func TestLocateCommand_EdgeWithLoopSuffix(t *testing.T) {
	_, err := execute(t, NewLocateCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--edge", "agent:research->tool:search#1")
	require.NoError(t, err)
}

func TestLocateCommand_Miss(t *testing.T) {
	_, err := execute(t, NewLocateCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--state", "agent:unknown")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLocateCommand_FlagValidation(t *testing.T) {
	_, err := execute(t, NewLocateCommand(&RootOptions{Format: "text"}), demoTracePath(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewLocateCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--state", "agent:a", "--edge", "a->b")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewLocateCommand(&RootOptions{Format: "text"}),
		demoTracePath(t), "--edge", "missing-arrow")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDemoCommand_WritesLoadableTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out, err := execute(t, NewDemoCommand(&RootOptions{Format: "text"}), "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	f, err := trace.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", f.TraceID)
	assert.Empty(t, trace.ValidateFile(path))
}

func TestSplitEdgeIdentity(t *testing.T) {
	from, to, ok := splitEdgeIdentity("agent:a->tool:b")
	require.True(t, ok)
	assert.Equal(t, "agent:a", from)
	assert.Equal(t, "tool:b", to)

	from, to, ok = splitEdgeIdentity("agent:a->agent:a#2")
	require.True(t, ok)
	assert.Equal(t, "agent:a", from)
	assert.Equal(t, "agent:a", to)

	_, _, ok = splitEdgeIdentity("no-arrow")
	assert.False(t, ok)

	_, _, ok = splitEdgeIdentity("->tool:b")
	assert.False(t, ok)
}

func TestLoadServeConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  addr: \":7000\"\n"), 0o644))

	cfg, err := loadServeConfig(&ServeOptions{
		RootOptions: &RootOptions{},
		ConfigPath:  cfgPath,
		Addr:        ":7001",
		TraceDir:    dir,
	})
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr, "flags beat the config file")
	assert.Equal(t, dir, cfg.Server.TraceDir)
}

func TestLoadServeConfig_Defaults(t *testing.T) {
	cfg, err := loadServeConfig(&ServeOptions{RootOptions: &RootOptions{}})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
