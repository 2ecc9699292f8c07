package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/form"
	"github.com/ayusman/repcoach/internal/pose"
)

func TestPhaseColor(t *testing.T) {
	assert.Equal(t, ColorGreen, PhaseColor(exercise.PhaseUp))
	for _, p := range []exercise.Phase{exercise.PhaseDown, exercise.PhaseRest, exercise.PhaseHold, exercise.PhaseNoDetection} {
		assert.Equal(t, ColorOrange, PhaseColor(p), p)
	}
}

func TestScoreColor(t *testing.T) {
	tests := []struct {
		score int
		want  any
	}{
		{100, ColorGreen},
		{80, ColorGreen},
		{79, ColorOrange},
		{60, ColorOrange},
		{59, ColorRed},
		{0, ColorRed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreColor(tt.score), "score %d", tt.score)
	}
}

func TestFeedbackLines(t *testing.T) {
	lines := FeedbackLines(exercise.FrameResult{
		Phase: exercise.PhaseDown,
		Angle: 87.26,
		Reps:  4,
		Form:  form.Assessment{Score: 80},
	})

	require.Len(t, lines, 4)
	assert.Equal(t, "Reps: 4", lines[0].Text)
	assert.Equal(t, "State: DOWN", lines[1].Text)
	assert.Equal(t, ColorOrange, lines[1].Color)
	assert.Equal(t, "Angle: 87.3 deg", lines[2].Text)
	assert.Equal(t, "Form Score: 80", lines[3].Text)
	assert.Equal(t, ColorGreen, lines[3].Color)
}

func TestDrawFeedback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	img := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer img.Close()

	// No person: the frame stays black.
	DrawFeedback(&img, nil, exercise.FrameResult{Phase: exercise.PhaseNoDetection})
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(gray))

	DrawFeedback(&img, pose.SquatPose(90), exercise.FrameResult{Phase: exercise.PhaseUp, Reps: 1, Form: form.Assessment{Score: 100}})
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	assert.Positive(t, gocv.CountNonZero(gray))
}
