package exercise

import (
	"time"

	"github.com/ayusman/repcoach/internal/form"
	"github.com/ayusman/repcoach/internal/pose"
)

// Phase is the current stage of a repetition cycle.
type Phase string

const (
	PhaseRest           Phase = "rest"
	PhaseDown           Phase = "down"
	PhaseUp             Phase = "up"
	PhaseHold           Phase = "hold"
	PhaseNoDetection    Phase = "no_detection"
	PhaseNotImplemented Phase = "not_implemented"
)

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	Phase Phase `json:"phase"`
	// Angle is the measured joint angle in degrees, 0 when undefined.
	Angle float64         `json:"angle"`
	Reps  int             `json:"reps"`
	Form  form.Assessment `json:"form"`
}

// Stats is a snapshot of the session state.
type Stats struct {
	Reps     int    `json:"reps"`
	Phase    Phase  `json:"phase"`
	Exercise string `json:"exercise"`
}

// session is the mutable state owned by a Machine.
type session struct {
	reps        int
	phase       Phase
	lastRepTime time.Time
	exercise    string
}

// MachineConfig holds the collaborators of a Machine. Zero values are
// replaced with the built-in defaults.
type MachineConfig struct {
	Registry *Registry
	Assessor *form.Assessor
	Clock    Clock
	Exercise string
}

// Machine is the exercise state machine of one video stream.
//
// A Machine is not safe for concurrent use; callers sharing one across
// goroutines must serialize access.
type Machine struct {
	registry *Registry
	assessor *form.Assessor
	clock    Clock
	state    session
}

// NewMachine creates a Machine in the rest phase.
func NewMachine(config MachineConfig) *Machine {
	if config.Registry == nil {
		config.Registry = NewDefaultRegistry(DefaultProfiles())
	}
	if config.Assessor == nil {
		config.Assessor = form.NewDefaultAssessor(form.DefaultPostureThreshold)
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	if config.Exercise == "" {
		config.Exercise = "pushup"
	}

	return &Machine{
		registry: config.Registry,
		assessor: config.Assessor,
		clock:    config.Clock,
		state: session{
			phase:       PhaseRest,
			lastRepTime: config.Clock.Now(),
			exercise:    config.Exercise,
		},
	}
}

// Process applies one frame to the session. A nil joint set means nobody
// was detected. Process never fails: anomalies are reported in the result
// and leave the rep count untouched.
func (m *Machine) Process(joints pose.JointSet, exercise string) FrameResult {
	m.state.exercise = exercise

	if !joints.Detected() {
		return m.passive(PhaseNoDetection, form.NoSubject())
	}

	variant := m.registry.Lookup(exercise)
	if variant.Kind() == KindUnsupported {
		return m.passive(PhaseNotImplemented, form.Unavailable())
	}

	angle, ok := variant.step(&m.state, joints, m.clock.Now())
	if !ok {
		return m.passive(PhaseNoDetection, form.JointsHidden())
	}

	return FrameResult{
		Phase: m.state.phase,
		Angle: angle,
		Reps:  m.state.reps,
		Form:  m.assessor.Assess(joints, exercise),
	}
}

// passive builds a result that reports phase without touching the session.
func (m *Machine) passive(phase Phase, assessment form.Assessment) FrameResult {
	return FrameResult{
		Phase: phase,
		Angle: 0,
		Reps:  m.state.reps,
		Form:  assessment,
	}
}

// Reset zeroes the rep count and returns to the rest phase.
func (m *Machine) Reset() {
	m.state.reps = 0
	m.state.phase = PhaseRest
	m.state.lastRepTime = m.clock.Now()
}

// Stats returns the current session state.
func (m *Machine) Stats() Stats {
	return Stats{
		Reps:     m.state.reps,
		Phase:    m.state.phase,
		Exercise: m.state.exercise,
	}
}

// Registry returns the registry the machine dispatches on.
func (m *Machine) Registry() *Registry {
	return m.registry
}
