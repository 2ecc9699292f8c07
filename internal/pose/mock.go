package pose

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	joints JointSet
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector that detects nobody.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// Detect returns the configured joints or error.
func (m *MockDetector) Detect(_ *gocv.Mat) (JointSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.joints, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SetJoints sets the joints returned by subsequent Detect calls.
// A nil set simulates an empty frame.
func (m *MockDetector) SetJoints(joints JointSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joints = joints
	m.err = nil
}

// SetError makes subsequent Detect calls fail with err.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// limbLength is the segment length used by the preset poses.
const limbLength = 0.15

// bend places the two outer points of a joint chain around vertex so that the
// angle measured at vertex is exactly degrees. The first point sits straight
// above the vertex, the second one rotates away from it.
func bend(vertex Point2D, degrees float64) (Point2D, Point2D) {
	rad := degrees * math.Pi / 180.0
	above := Point2D{X: vertex.X, Y: vertex.Y - limbLength}
	away := Point2D{
		X: vertex.X + limbLength*math.Sin(rad),
		Y: vertex.Y - limbLength*math.Cos(rad),
	}
	return above, away
}

// PushupPose returns a preset JointSet with both elbows bent to elbowAngle.
// With straightBody the left elbow-shoulder-hip angle is 180 degrees,
// otherwise it is 90 degrees.
func PushupPose(elbowAngle float64, straightBody bool) JointSet {
	joints := JointSet{}

	for _, side := range []struct {
		shoulder, elbow, wrist Joint
		x                      float64
	}{
		{LeftShoulder, LeftElbow, LeftWrist, 0.40},
		{RightShoulder, RightElbow, RightWrist, 0.60},
	} {
		elbow := Point2D{X: side.x, Y: 0.50}
		shoulder, wrist := bend(elbow, elbowAngle)
		joints[side.shoulder] = shoulder
		joints[side.elbow] = elbow
		joints[side.wrist] = wrist
	}

	// The left elbow sits straight below the left shoulder.
	leftShoulder := joints[LeftShoulder]
	if straightBody {
		joints[LeftHip] = Point2D{X: leftShoulder.X, Y: leftShoulder.Y - 2*limbLength}
	} else {
		joints[LeftHip] = Point2D{X: leftShoulder.X + 2*limbLength, Y: leftShoulder.Y}
	}

	return joints
}

// SquatPose returns a preset JointSet with both knees bent to kneeAngle.
func SquatPose(kneeAngle float64) JointSet {
	joints := JointSet{}

	for _, side := range []struct {
		hip, knee, ankle Joint
		x                float64
	}{
		{LeftHip, LeftKnee, LeftAnkle, 0.45},
		{RightHip, RightKnee, RightAnkle, 0.55},
	} {
		knee := Point2D{X: side.x, Y: 0.65}
		hip, ankle := bend(knee, kneeAngle)
		joints[side.hip] = hip
		joints[side.knee] = knee
		joints[side.ankle] = ankle
	}

	return joints
}

// PlankPose returns a preset JointSet with the left shoulder-hip-ankle angle
// set to bodyAngle.
func PlankPose(bodyAngle float64) JointSet {
	hip := Point2D{X: 0.50, Y: 0.50}
	shoulder, ankle := bend(hip, bodyAngle)
	return JointSet{
		LeftShoulder: shoulder,
		LeftHip:      hip,
		LeftAnkle:    ankle,
	}
}

// DownwardDogPose returns a preset JointSet with the left wrist-hip-ankle
// angle set to hipAngle.
func DownwardDogPose(hipAngle float64) JointSet {
	hip := Point2D{X: 0.50, Y: 0.40}
	wrist, ankle := bend(hip, hipAngle)
	return JointSet{
		LeftWrist: wrist,
		LeftHip:   hip,
		LeftAnkle: ankle,
	}
}
