// Package pose provides body landmark types and the pose detector interface.
package pose

import "math"

// Joint identifies an anatomical landmark.
type Joint string

// Joint vocabulary. Names follow the MediaPipe pose landmark naming.
const (
	LeftShoulder  Joint = "LEFT_SHOULDER"
	RightShoulder Joint = "RIGHT_SHOULDER"
	LeftElbow     Joint = "LEFT_ELBOW"
	RightElbow    Joint = "RIGHT_ELBOW"
	LeftWrist     Joint = "LEFT_WRIST"
	RightWrist    Joint = "RIGHT_WRIST"
	LeftHip       Joint = "LEFT_HIP"
	RightHip      Joint = "RIGHT_HIP"
	LeftKnee      Joint = "LEFT_KNEE"
	RightKnee     Joint = "RIGHT_KNEE"
	LeftAnkle     Joint = "LEFT_ANKLE"
	RightAnkle    Joint = "RIGHT_ANKLE"
)

// Joints lists the full vocabulary in MediaPipe index order.
var Joints = []Joint{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// mediaPipeIndex maps MediaPipe pose landmark indices to joints.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
var mediaPipeIndex = map[int]Joint{
	11: LeftShoulder,
	12: RightShoulder,
	13: LeftElbow,
	14: RightElbow,
	15: LeftWrist,
	16: RightWrist,
	23: LeftHip,
	24: RightHip,
	25: LeftKnee,
	26: RightKnee,
	27: LeftAnkle,
	28: RightAnkle,
}

// Valid reports whether j belongs to the joint vocabulary.
func (j Joint) Valid() bool {
	for _, known := range Joints {
		if j == known {
			return true
		}
	}
	return false
}

// Point2D is a joint position in normalized image coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Point2D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// JointSet holds the joints detected in one frame.
// A nil JointSet means no person was detected.
type JointSet map[Joint]Point2D

// Detected reports whether the set carries a detection.
func (s JointSet) Detected() bool {
	return s != nil
}

// Lookup returns the positions of the requested joints.
// ok is false if any of them is missing.
func (s JointSet) Lookup(joints ...Joint) (points []Point2D, ok bool) {
	points = make([]Point2D, len(joints))
	for i, j := range joints {
		p, found := s[j]
		if !found {
			return nil, false
		}
		points[i] = p
	}
	return points, true
}
