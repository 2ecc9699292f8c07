package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_WorkoutLog(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "workouts.db")
	recording := filepath.Join("..", "..", "testdata", "recordings", "pushups.jsonl")

	out, err := run(t, "--db", db, "workouts", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "No workouts found.")

	out, err = run(t, "--db", db, "replay", "--quiet", "--save", "-e", "pushup", recording)
	require.NoError(t, err)
	assert.Contains(t, out, "saved as ")

	out, err = run(t, "--db", db, "workouts", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "pushup")
	assert.Contains(t, out, "96.0")

	out, err = run(t, "--db", db, "workouts", "stats", "-e", "pushup")
	require.NoError(t, err)
	assert.Contains(t, out, "Last 30 days, pushup")
	assert.Regexp(t, `reps\s+5\n`, out)
	assert.Regexp(t, `calories\s+25.0\n`, out)

	out, err = run(t, "--db", db, "workouts", "weekly")
	require.NoError(t, err)
	assert.Contains(t, out, "This week")
	assert.Regexp(t, `workouts\s+1\n`, out)

	csvPath := filepath.Join(dir, "export.csv")
	_, err = run(t, "--db", db, "workouts", "export", "-o", csvPath)
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,date,exercise_type"))

	_, err = run(t, "--db", db, "workouts", "clear")
	assert.Error(t, err)

	out, err = run(t, "--db", db, "workouts", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 workouts")
}

func TestCommands_Exercises(t *testing.T) {
	out, err := run(t, "--db", filepath.Join(t.TempDir(), "w.db"), "exercises")
	require.NoError(t, err)

	assert.Regexp(t, `pushup\s+threshold_gate\s+90\s+160\s+1.0s\s+5.0`, out)
	assert.Regexp(t, `plank\s+hold_timer\s+160\s+180\s+2.0s\s+2.0`, out)
	assert.Regexp(t, `crunch\s+unsupported`, out)
}

func TestFindWebDir(t *testing.T) {
	// Tests run from cmd/repcoach where no dashboard is checked in.
	dir := findWebDir()
	if dir != "" {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
