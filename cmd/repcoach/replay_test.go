package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/store"
)

func init() {
	color.NoColor = true
}

func loadRecording(t *testing.T, name string) *pose.Recording {
	t.Helper()
	rec, err := pose.LoadRecording(filepath.Join("..", "..", "testdata", "recordings", name))
	require.NoError(t, err)
	return rec
}

func replayOpts(name string) replayOptions {
	return replayOptions{
		Exercise: name,
		Profiles: exercise.DefaultProfiles(),
		Start:    time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestReplay(t *testing.T) {
	tests := []struct {
		recording string
		exercise  string
		reps      int
		minutes   float64
		score     float64
		calories  float64
		line      string
	}{
		{"pushups.jsonl", "pushup", 5, 0.17, 96, 25, "  10.25s  rep 5\n"},
		{"squats.jsonl", "squat", 3, 0.1, 100, 9, "   5.75s  rep 3\n"},
		{"plank.jsonl", "plank", 6, 0.1, 100, 12, "   6.00s  held 6s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.exercise, func(t *testing.T) {
			var out bytes.Buffer
			w, err := replay(&out, loadRecording(t, tt.recording), replayOpts(tt.exercise))
			require.NoError(t, err)

			assert.Equal(t, tt.exercise, w.ExerciseType)
			assert.Equal(t, tt.reps, w.Reps)
			assert.Equal(t, tt.minutes, w.DurationMinutes)
			assert.Equal(t, tt.score, w.FormScore)
			assert.Equal(t, tt.calories, w.CaloriesEstimate)

			assert.Contains(t, out.String(), tt.line)
			assert.Contains(t, out.String(), "Workout summary")
		})
	}
}

func TestReplay_FrameOutput(t *testing.T) {
	var out bytes.Buffer
	_, err := replay(&out, loadRecording(t, "pushups.jsonl"), replayOpts("pushup"))
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "   0.75s  down")
	assert.Contains(t, s, "   4.00s  no_detection")
	assert.Contains(t, s, "Keep your body straight")

	out.Reset()
	opts := replayOpts("pushup")
	opts.Quiet = true
	_, err = replay(&out, loadRecording(t, "pushups.jsonl"), opts)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "no_detection")
	assert.Contains(t, out.String(), "rep 1\n")
}

func TestReplay_Unsupported(t *testing.T) {
	var out bytes.Buffer
	w, err := replay(&out, loadRecording(t, "squats.jsonl"), replayOpts("crunch"))
	require.NoError(t, err)

	assert.Equal(t, 0, w.Reps)
	assert.Equal(t, 0.0, w.FormScore)
	assert.Contains(t, out.String(), "crunch has no counting rule")
}

func TestReplay_Errors(t *testing.T) {
	_, err := replay(&bytes.Buffer{}, loadRecording(t, "squats.jsonl"), replayOpts("handstand"))
	assert.ErrorIs(t, err, app.ErrUnknownExercise)

	_, err = replay(&bytes.Buffer{}, &pose.Recording{}, replayOpts("squat"))
	assert.Error(t, err)
}

func TestReplay_Save(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	defer s.Close()

	opts := replayOpts("squat")
	opts.Store = s

	var out bytes.Buffer
	w, err := replay(&out, loadRecording(t, "squats.jsonl"), opts)
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	assert.Contains(t, out.String(), "saved as "+w.ID)

	logged, err := s.Workouts().List()
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, w.ID, logged[0].ID)
	assert.Equal(t, 3, logged[0].Reps)
}
