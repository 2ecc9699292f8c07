package capture

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/pose"
)

// Overlay colors.
var (
	ColorGreen  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	ColorOrange = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	ColorRed    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Form score bands.
const (
	GoodFormScore = 80
	FairFormScore = 60
)

// OverlayLine is one line of feedback text.
type OverlayLine struct {
	Text  string
	Color color.RGBA
}

// PhaseColor is green in the up phase and orange otherwise.
func PhaseColor(phase exercise.Phase) color.RGBA {
	if phase == exercise.PhaseUp {
		return ColorGreen
	}
	return ColorOrange
}

// ScoreColor is green for good form, orange for fair form and red below.
func ScoreColor(score int) color.RGBA {
	switch {
	case score >= GoodFormScore:
		return ColorGreen
	case score >= FairFormScore:
		return ColorOrange
	default:
		return ColorRed
	}
}

// FeedbackLines returns the text lines drawn for a result.
func FeedbackLines(r exercise.FrameResult) []OverlayLine {
	return []OverlayLine{
		{Text: fmt.Sprintf("Reps: %d", r.Reps), Color: ColorGreen},
		{Text: "State: " + strings.ToUpper(string(r.Phase)), Color: PhaseColor(r.Phase)},
		{Text: fmt.Sprintf("Angle: %.1f deg", r.Angle), Color: ColorWhite},
		{Text: fmt.Sprintf("Form Score: %d", r.Form.Score), Color: ScoreColor(r.Form.Score)},
	}
}

// bones are the skeleton segments drawn between visible joints.
var bones = [][2]pose.Joint{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow},
	{pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow},
	{pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip},
	{pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee},
	{pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee},
	{pose.RightKnee, pose.RightAnkle},
}

const (
	lineHeight = 40
	fontScale  = 1.0
	thickness  = 2
)

// DrawFeedback annotates img in place with the skeleton and the feedback
// text. Frames without a detected person are left untouched.
func DrawFeedback(img *gocv.Mat, joints pose.JointSet, r exercise.FrameResult) {
	if img == nil || img.Empty() || !joints.Detected() {
		return
	}

	w, h := img.Cols(), img.Rows()
	toPixel := func(p pose.Point2D) image.Point {
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, bone := range bones {
		a, aok := joints[bone[0]]
		b, bok := joints[bone[1]]
		if aok && bok {
			gocv.Line(img, toPixel(a), toPixel(b), ColorWhite, thickness)
		}
	}
	for _, p := range joints {
		gocv.Circle(img, toPixel(p), 4, ColorOrange, -1)
	}

	for i, line := range FeedbackLines(r) {
		origin := image.Pt(10, 30+i*lineHeight)
		gocv.PutText(img, line.Text, origin, gocv.FontHersheySimplex, fontScale, line.Color, thickness)
	}
}
