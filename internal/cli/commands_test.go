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

	"github.com/roach88/a11yoracle/internal/trace"
)

var fixture = filepath.Join("..", "harness", "testdata", "scenarios", "launch_and_exit.yaml")

// execute runs a subcommand built by newCmd and returns its stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "launch_and_exit, 5 steps")
}

func TestValidate_Invalid(t *testing.T) {
	bad := writeScenario(t, "name: x\ncommand: cmd.exe\n")

	out, err := execute(t, NewValidateCommand, "text", fixture, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "✗ "+bad)
}

func TestValidate_JSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "json", fixture)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "launch_and_exit", resp.Data.Scenarios[0].Name)
}

func TestPredict_Text(t *testing.T) {
	out, err := execute(t, NewPredictCommand, "text", fixture)
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: launch_and_exit")
	assert.Contains(t, out, "step 0: type cmd (6 records)")
	assert.Contains(t, out, "UpdateSimple(16, 3, 99, 7)")
	assert.Contains(t, out, "StartApplication")
	assert.Contains(t, out, "Final state: cursor=(16,9)")
}

func TestPredict_JSONDocument(t *testing.T) {
	out, err := execute(t, NewPredictCommand, "json", fixture)
	require.NoError(t, err)

	doc, err := trace.UnmarshalDocument([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "launch_and_exit", doc.Scenario)
	require.Len(t, doc.Steps, 5)
	assert.Len(t, doc.Steps[0].Expected, 6)
	assert.Nil(t, doc.Steps[0].Captured)
	assert.Len(t, doc.Steps[4].Expected, 1)
}

func TestPredict_Wrap(t *testing.T) {
	_, err := execute(t, NewPredictCommand, "text", fixture, "--size", "18,50")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "wrap")
}

func TestPredict_BadCursor(t *testing.T) {
	_, err := execute(t, NewPredictCommand, "text", fixture, "--cursor", "1,2,3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_Pass(t *testing.T) {
	out, err := execute(t, NewSimulateCommand, "text", fixture)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ step 0: type cmd")
	assert.Contains(t, out, "✓ step 4: scroll up")
	assert.Contains(t, out, "PASS launch_and_exit (5 steps)")
}

func TestSimulate_Drop(t *testing.T) {
	out, err := execute(t, NewSimulateCommand, "text", fixture, "--drop", "StartApplication")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ step 1: launch")
	assert.Contains(t, out, "Expected:")
	assert.Contains(t, out, "Captured:")
	assert.Contains(t, out, "FAIL launch_and_exit")
}

func TestSimulate_BadDrop(t *testing.T) {
	_, err := execute(t, NewSimulateCommand, "text", fixture, "--drop", "Beep")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_InvalidScenario(t *testing.T) {
	bad := writeScenario(t, "name: x\n")
	out, err := execute(t, NewSimulateCommand, "text", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

const typeOnly = `
name: type_only
command: cmd.exe
settle: { idle: 20ms, timeout: 300ms }
steps:
  - text: a
`

// simulateToDB runs a scenario into a fresh database and returns its path
// and the stored session id.
func simulateToDB(t *testing.T, scenario string, args ...string) (string, string, error) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "oracle.db")

	out, err := execute(t, NewSimulateCommand, "json", append([]string{scenario, "--db", db}, args...)...)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.Session)
	return db, resp.Data.Session, err
}

func TestReplay_StoredSession(t *testing.T) {
	db, id, err := simulateToDB(t, fixture)
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+id+" (launch_and_exit)")

	out, err = execute(t, NewReplayCommand, "json", "--db", db, "--session", id)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sessions, 1)
	s := resp.Data.Sessions[0]
	assert.True(t, s.Pass)
	assert.True(t, s.Consistent)
	assert.True(t, s.DigestMatch)
	assert.Len(t, s.Steps, 5)
}

func TestReplay_FailedSessionIsConsistent(t *testing.T) {
	db, id, err := simulateToDB(t, writeScenario(t, typeOnly), "--drop", "CaretVisible")
	require.Error(t, err)

	out, err := execute(t, NewReplayCommand, "json", "--db", db, "--session", id)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "fail", resp.Status)
	s := resp.Data.Sessions[0]
	assert.False(t, s.Pass)
	assert.True(t, s.Consistent, "replayed verdicts match the stored ones")
	require.NotEmpty(t, s.Steps)
	assert.Contains(t, s.Steps[0].Failure, "count mismatch")
}

func TestReplay_UnknownSession(t *testing.T) {
	db, _, err := simulateToDB(t, fixture)
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand, "text", "--db", db, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestReplay_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	out, err := execute(t, NewReplayCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestReplay_RequiresDB(t *testing.T) {
	_, err := execute(t, NewReplayCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestTrace_ListAndShow(t *testing.T) {
	db, id, err := simulateToDB(t, fixture)
	require.NoError(t, err)

	out, err := execute(t, NewTraceCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "launch_and_exit")
	assert.Contains(t, out, "pass")

	out, err = execute(t, NewTraceCommand, "text", "--db", db, "--scenario", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	out, err = execute(t, NewTraceCommand, "text", "--db", db, "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session: "+id)
	assert.Contains(t, out, "✓ step 1: launch")
	assert.Contains(t, out, "expected:")
	assert.Contains(t, out, "captured:")

	out, err = execute(t, NewTraceCommand, "json", "--db", db, "--session", id)
	require.NoError(t, err)
	doc, err := trace.UnmarshalDocument([]byte(out))
	require.NoError(t, err)
	require.Len(t, doc.Steps, 5)
	assert.Equal(t, doc.Steps[1].Expected, doc.Steps[1].Captured)
}

func TestTrace_UnknownSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "oracle.db")
	out, err := execute(t, NewTraceCommand, "json", "--db", db, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
