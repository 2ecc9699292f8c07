package exercise

import (
	"time"

	"github.com/ayusman/repcoach/internal/geometry"
	"github.com/ayusman/repcoach/internal/pose"
)

// Kind tags a Variant.
type Kind string

const (
	KindThresholdGate Kind = "threshold_gate"
	KindHoldTimer     Kind = "hold_timer"
	KindUnsupported   Kind = "unsupported"
)

// Variant is the transition rule of an exercise. The set of variants is
// closed: ThresholdGate, HoldTimer and Unsupported.
type Variant interface {
	Kind() Kind
	// step applies one frame to the session and returns the measured angle.
	// ok is false when the joints the variant needs are missing.
	step(s *session, joints pose.JointSet, now time.Time) (angle float64, ok bool)
}

// Measure extracts the representative angle of an exercise from a frame.
type Measure func(joints pose.JointSet) (float64, bool)

// Chain is a three-joint chain whose angle is measured at Vertex.
type Chain struct {
	A, Vertex, C pose.Joint
}

// Single measures the angle of one chain.
func Single(c Chain) Measure {
	return func(joints pose.JointSet) (float64, bool) {
		return geometry.JointAngle(joints, c.A, c.Vertex, c.C)
	}
}

// Bilateral averages the left and right chains when both are present and
// falls back to whichever side is present otherwise.
func Bilateral(left, right Chain) Measure {
	return func(joints pose.JointSet) (float64, bool) {
		l, lok := geometry.JointAngle(joints, left.A, left.Vertex, left.C)
		r, rok := geometry.JointAngle(joints, right.A, right.Vertex, right.C)
		switch {
		case lok && rok:
			return (l + r) / 2, true
		case lok:
			return l, true
		case rok:
			return r, true
		default:
			return 0, false
		}
	}
}

// ThresholdGate counts one rep per full down-then-up cycle. Up-crossings
// inside the cooldown window finish the cycle without counting.
type ThresholdGate struct {
	Profile Profile
	Measure Measure
}

// Kind implements Variant.
func (ThresholdGate) Kind() Kind { return KindThresholdGate }

func (g ThresholdGate) step(s *session, joints pose.JointSet, now time.Time) (float64, bool) {
	angle, ok := g.Measure(joints)
	if !ok {
		return 0, false
	}

	switch {
	case angle < g.Profile.DownThreshold:
		if s.phase != PhaseDown {
			s.phase = PhaseDown
		}
	case angle > g.Profile.UpThreshold:
		if s.phase == PhaseDown {
			if now.Sub(s.lastRepTime) >= g.Profile.RepCooldown {
				s.reps++
				s.lastRepTime = now
			}
			s.phase = PhaseUp
		}
	}

	return angle, true
}

// HoldTimer reports the whole seconds a position has been held as the rep
// count. Leaving the position resets the count to zero at once.
type HoldTimer struct {
	Profile Profile
	Measure Measure
}

// Kind implements Variant.
func (HoldTimer) Kind() Kind { return KindHoldTimer }

func (h HoldTimer) step(s *session, joints pose.JointSet, now time.Time) (float64, bool) {
	angle, ok := h.Measure(joints)
	if !ok {
		return 0, false
	}

	if angle > h.Profile.DownThreshold {
		if s.phase != PhaseHold {
			s.phase = PhaseHold
			// lastRepTime doubles as the hold start.
			s.lastRepTime = now
		}
		held := now.Sub(s.lastRepTime)
		if held < 0 {
			held = 0
		}
		s.reps = int(held / time.Second)
	} else {
		s.phase = PhaseRest
		s.reps = 0
	}

	return angle, true
}

// Unsupported is the variant of every exercise without a rule.
type Unsupported struct{}

// Kind implements Variant.
func (Unsupported) Kind() Kind { return KindUnsupported }

func (Unsupported) step(*session, pose.JointSet, time.Time) (float64, bool) {
	return 0, true
}
