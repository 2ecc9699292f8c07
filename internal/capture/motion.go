package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// GaussianBlurSize is the blur kernel applied before differencing.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts as movement.
	DiffThreshold = 25
)

// MotionDetector compares each frame with the previous one and reports the
// share of pixels that changed. Pose detection is skipped while nobody moves.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64 // percent of changed pixels
	baseline  gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector firing when more than threshold
// percent of the pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		baseline:  gocv.NewMat(),
	}
}

// Detect reports whether frame moved against the previous frame, and the
// percentage of changed pixels. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := smoothGray(frame)
	defer cur.Close()

	if !m.primed {
		cur.CopyTo(&m.baseline)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.baseline, &diff)
	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := 100 * float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	cur.CopyTo(&m.baseline)

	return changed > m.threshold, changed
}

// smoothGray returns a blurred single-channel copy of frame.
func smoothGray(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)
	return gray
}

// Reset drops the baseline; the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

func (m *MotionDetector) dropBaseline() {
	if !m.baseline.Empty() {
		m.baseline.Close()
		m.baseline = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold changes the trigger percentage. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = threshold
	m.mu.Unlock()
}

// Activity gate defaults.
const (
	// IdleFPS is the frame rate while nobody moves.
	IdleFPS = 5
	// ActiveFPS is the frame rate during a workout.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before switching back to idle.
	IdleTimeout = 2 * time.Second
)

// ActivityGate switches between idle and active mode based on motion.
// Motion switches to active at once; idle resumes only after the timeout
// has passed without motion.
type ActivityGate struct {
	idleFPS     int
	activeFPS   int
	idleTimeout time.Duration

	active     bool
	lastMotion time.Time
}

// NewActivityGate creates a gate in idle mode.
func NewActivityGate(idleFPS, activeFPS int, idleTimeout time.Duration) *ActivityGate {
	return &ActivityGate{
		idleFPS:     idleFPS,
		activeFPS:   activeFPS,
		idleTimeout: idleTimeout,
	}
}

// NewDefaultActivityGate creates a gate with IdleFPS, ActiveFPS and IdleTimeout.
func NewDefaultActivityGate() *ActivityGate {
	return NewActivityGate(IdleFPS, ActiveFPS, IdleTimeout)
}

// Observe records one motion sample taken at now. It reports whether the
// gate is active afterwards and whether the mode changed.
func (g *ActivityGate) Observe(motion bool, now time.Time) (active, changed bool) {
	switch {
	case motion:
		g.lastMotion = now
		if !g.active {
			g.active = true
			return true, true
		}
	case g.active && now.Sub(g.lastMotion) > g.idleTimeout:
		g.active = false
		return false, true
	}
	return g.active, false
}

// Active reports whether the gate is in active mode.
func (g *ActivityGate) Active() bool {
	return g.active
}

// FPS returns the frame rate of the current mode.
func (g *ActivityGate) FPS() int {
	if g.active {
		return g.activeFPS
	}
	return g.idleFPS
}

// Interval returns the frame interval of the current mode.
func (g *ActivityGate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}

// Reset returns the gate to idle mode.
func (g *ActivityGate) Reset() {
	g.active = false
	g.lastMotion = time.Time{}
}
