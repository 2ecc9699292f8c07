package exercise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/form"
	"github.com/ayusman/repcoach/internal/pose"
)

var epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T, profiles Profiles) (*Machine, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	m := NewMachine(MachineConfig{
		Registry: NewDefaultRegistry(profiles),
		Clock:    clock,
	})
	return m, clock
}

func noCooldown(name string) Profiles {
	p, _ := DefaultProfiles().Get(name)
	p.RepCooldown = 0
	return DefaultProfiles().With(p)
}

func TestMachine_InitialState(t *testing.T) {
	m, _ := newTestMachine(t, DefaultProfiles())

	stats := m.Stats()
	assert.Equal(t, 0, stats.Reps)
	assert.Equal(t, PhaseRest, stats.Phase)
	assert.Equal(t, "pushup", stats.Exercise)
}

func TestMachine_PushupSingleCycle(t *testing.T) {
	m, _ := newTestMachine(t, noCooldown("pushup"))

	r := m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, PhaseRest, r.Phase)
	assert.Equal(t, 0, r.Reps)
	assert.InDelta(t, 180, r.Angle, 1e-6)

	r = m.Process(pose.PushupPose(45, true), "pushup")
	assert.Equal(t, PhaseDown, r.Phase)
	assert.Equal(t, 0, r.Reps)
	assert.InDelta(t, 45, r.Angle, 1e-6)

	r = m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, PhaseUp, r.Phase)
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, form.BaselineScore, r.Form.Score)
}

func TestMachine_CyclesCountOncePerCycle(t *testing.T) {
	for _, cycles := range []int{1, 3, 10} {
		m, clock := newTestMachine(t, DefaultProfiles())
		for i := 0; i < cycles; i++ {
			clock.Advance(2 * time.Second)
			m.Process(pose.PushupPose(45, true), "pushup")
			// Lingering frames in the same phase change nothing.
			m.Process(pose.PushupPose(50, true), "pushup")
			m.Process(pose.PushupPose(120, true), "pushup")
			m.Process(pose.PushupPose(175, true), "pushup")
			m.Process(pose.PushupPose(178, true), "pushup")
		}
		assert.Equal(t, cycles, m.Stats().Reps)
	}
}

func TestMachine_CooldownSuppressesRep(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	clock.Advance(2 * time.Second)
	m.Process(pose.SquatPose(45), "squat")
	r := m.Process(pose.SquatPose(170), "squat")
	require.Equal(t, 1, r.Reps)

	// A second cycle inside the 1s cooldown completes without counting.
	clock.Advance(500 * time.Millisecond)
	m.Process(pose.SquatPose(45), "squat")
	r = m.Process(pose.SquatPose(170), "squat")
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, PhaseUp, r.Phase)

	// The cooldown is measured from the last counted rep.
	clock.Advance(600 * time.Millisecond)
	m.Process(pose.SquatPose(45), "squat")
	r = m.Process(pose.SquatPose(170), "squat")
	assert.Equal(t, 2, r.Reps)
}

func TestMachine_CooldownAppliesFromStart(t *testing.T) {
	m, _ := newTestMachine(t, DefaultProfiles())

	m.Process(pose.PushupPose(45, true), "pushup")
	r := m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, 0, r.Reps)
	assert.Equal(t, PhaseUp, r.Phase)
}

func TestMachine_UpWithoutDownDoesNotCount(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	clock.Advance(5 * time.Second)
	r := m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, PhaseRest, r.Phase)
	assert.Equal(t, 0, r.Reps)
}

func TestMachine_BandBetweenThresholdsKeepsPhase(t *testing.T) {
	m, _ := newTestMachine(t, noCooldown("pushup"))

	m.Process(pose.PushupPose(45, true), "pushup")
	r := m.Process(pose.PushupPose(120, true), "pushup")
	assert.Equal(t, PhaseDown, r.Phase)
	assert.Equal(t, 0, r.Reps)
}

func TestMachine_PlankHold(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	r := m.Process(pose.PlankPose(175), "plank")
	assert.Equal(t, PhaseHold, r.Phase)
	assert.Equal(t, 0, r.Reps)

	clock.Advance(2500 * time.Millisecond)
	r = m.Process(pose.PlankPose(178), "plank")
	assert.Equal(t, PhaseHold, r.Phase)
	assert.Equal(t, 2, r.Reps)

	clock.Advance(1500 * time.Millisecond)
	r = m.Process(pose.PlankPose(170), "plank")
	assert.Equal(t, 4, r.Reps)

	// Dropping out of the position resets the count at once.
	clock.Advance(100 * time.Millisecond)
	r = m.Process(pose.PlankPose(120), "plank")
	assert.Equal(t, PhaseRest, r.Phase)
	assert.Equal(t, 0, r.Reps)

	// A new hold starts from zero.
	r = m.Process(pose.PlankPose(175), "plank")
	assert.Equal(t, PhaseHold, r.Phase)
	assert.Equal(t, 0, r.Reps)
	clock.Advance(time.Second)
	r = m.Process(pose.PlankPose(175), "plank")
	assert.Equal(t, 1, r.Reps)
}

func TestMachine_DownwardDogHold(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	m.Process(pose.DownwardDogPose(150), "downward dog")
	clock.Advance(3 * time.Second)
	r := m.Process(pose.DownwardDogPose(150), "Downward Dog")
	assert.Equal(t, PhaseHold, r.Phase)
	assert.Equal(t, 3, r.Reps)

	r = m.Process(pose.DownwardDogPose(90), "downward dog")
	assert.Equal(t, PhaseRest, r.Phase)
	assert.Equal(t, 0, r.Reps)
}

func TestMachine_NoDetectionPreservesState(t *testing.T) {
	m, _ := newTestMachine(t, noCooldown("pushup"))

	m.Process(pose.PushupPose(45, true), "pushup")
	m.Process(pose.PushupPose(180, true), "pushup")
	m.Process(pose.PushupPose(45, true), "pushup")

	r := m.Process(nil, "pushup")
	assert.Equal(t, PhaseNoDetection, r.Phase)
	assert.Equal(t, 0.0, r.Angle)
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, 0, r.Form.Score)
	assert.Equal(t, []string{form.IssueNoPerson}, r.Form.Issues)

	// The cycle in progress survives the gap.
	assert.Equal(t, PhaseDown, m.Stats().Phase)
	r = m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, 2, r.Reps)
}

func TestMachine_MissingJointsReportNoDetection(t *testing.T) {
	m, _ := newTestMachine(t, DefaultProfiles())

	r := m.Process(pose.PlankPose(175), "pushup")
	assert.Equal(t, PhaseNoDetection, r.Phase)
	assert.Equal(t, 0, r.Reps)
	assert.Equal(t, []string{form.IssueJointsHidden}, r.Form.Issues)
	assert.Equal(t, PhaseRest, m.Stats().Phase)
}

func TestMachine_BilateralFallsBackToOneSide(t *testing.T) {
	m, _ := newTestMachine(t, noCooldown("squat"))

	down := pose.SquatPose(45)
	delete(down, pose.RightKnee)
	r := m.Process(down, "squat")
	assert.Equal(t, PhaseDown, r.Phase)
	assert.InDelta(t, 45, r.Angle, 1e-6)
}

func TestMachine_UnsupportedExercise(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	for _, exercise := range []string{"tree pose", "jumping jack", "handstand"} {
		clock.Advance(time.Second)
		r := m.Process(pose.SquatPose(45), exercise)
		assert.Equal(t, PhaseNotImplemented, r.Phase, exercise)
		assert.Equal(t, 0.0, r.Angle)
		assert.Equal(t, 0, r.Reps)
		assert.Equal(t, 0, r.Form.Score)
		assert.Equal(t, []string{form.IssueNotImplemented}, r.Form.Issues)
	}
	assert.Equal(t, PhaseRest, m.Stats().Phase)
	assert.Equal(t, "handstand", m.Stats().Exercise)
}

func TestMachine_BurpeeUsesSquatMovement(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	clock.Advance(2 * time.Second)
	m.Process(pose.SquatPose(65), "burpee")
	r := m.Process(pose.SquatPose(170), "burpee")
	assert.Equal(t, 1, r.Reps)
}

func TestMachine_Reset(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	clock.Advance(2 * time.Second)
	m.Process(pose.PushupPose(45, true), "pushup")
	m.Process(pose.PushupPose(180, true), "pushup")
	require.Equal(t, 1, m.Stats().Reps)

	m.Reset()
	stats := m.Stats()
	assert.Equal(t, 0, stats.Reps)
	assert.Equal(t, PhaseRest, stats.Phase)
	assert.Equal(t, "pushup", stats.Exercise)

	// Reset restarts the cooldown window.
	m.Process(pose.PushupPose(45, true), "pushup")
	r := m.Process(pose.PushupPose(180, true), "pushup")
	assert.Equal(t, 0, r.Reps)
}

func TestMachine_FormIsAssessedOnCountedFrames(t *testing.T) {
	m, _ := newTestMachine(t, DefaultProfiles())

	r := m.Process(pose.PushupPose(170, false), "pushup")
	assert.Equal(t, 80, r.Form.Score)
	assert.Len(t, r.Form.Issues, 1)
	assert.Len(t, r.Form.Tips, 1)
}

func TestMachine_ExerciseSwitchKeepsCount(t *testing.T) {
	m, clock := newTestMachine(t, DefaultProfiles())

	clock.Advance(2 * time.Second)
	m.Process(pose.PushupPose(45, true), "pushup")
	m.Process(pose.PushupPose(180, true), "pushup")

	r := m.Process(pose.SquatPose(170), "squat")
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, "squat", m.Stats().Exercise)
}

func TestMachine_Defaults(t *testing.T) {
	m := NewMachine(MachineConfig{})
	require.NotNil(t, m.Registry())
	assert.Equal(t, KindThresholdGate, m.Registry().Lookup("pushup").Kind())
	assert.Equal(t, PhaseRest, m.Stats().Phase)
}
