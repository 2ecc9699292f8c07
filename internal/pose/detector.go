package pose

import (
	"strconv"

	"gocv.io/x/gocv"
)

// Detector extracts body joints from a frame.
type Detector interface {
	// Detect returns the visible joints in frame, or a nil JointSet when no
	// person is found.
	Detect(frame *gocv.Mat) (JointSet, error)
	Close() error
}

// Thresholds tune the pose model. All values are in [0, 1].
type Thresholds struct {
	Detection  float64
	Tracking   float64
	Visibility float64 // joints scoring below it are dropped
}

// DefaultThresholds returns the model's recommended values.
func DefaultThresholds() Thresholds {
	return Thresholds{Detection: 0.5, Tracking: 0.5, Visibility: 0.5}
}

// serviceArgs renders the thresholds as pose service flags.
func (t Thresholds) serviceArgs() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		"--min-detection-confidence", f(t.Detection),
		"--min-tracking-confidence", f(t.Tracking),
	}
}
