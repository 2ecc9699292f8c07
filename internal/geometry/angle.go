// Package geometry provides the joint angle computation used for rep counting.
package geometry

import (
	"math"

	"github.com/ayusman/repcoach/internal/pose"
)

// Angle returns the angle in degrees at vertex b formed by the points a and c.
// The result is always in [0, 180].
//
// A zero-length segment (a == b or c == b) has no direction, so the angle is
// undefined; Angle returns 0 in that case and for any non-finite input.
func Angle(a, b, c pose.Point2D) float64 {
	if !a.Finite() || !b.Finite() || !c.Finite() {
		return 0
	}
	if a == b || c == b {
		return 0
	}

	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	degrees := math.Abs(radians * 180.0 / math.Pi)

	if degrees > 180.0 {
		degrees = 360.0 - degrees
	}

	return degrees
}

// JointAngle computes the angle at the middle joint of a three-joint chain.
// ok is false if any joint is missing from the set.
func JointAngle(joints pose.JointSet, a, vertex, c pose.Joint) (float64, bool) {
	points, ok := joints.Lookup(a, vertex, c)
	if !ok {
		return 0, false
	}
	return Angle(points[0], points[1], points[2]), true
}
