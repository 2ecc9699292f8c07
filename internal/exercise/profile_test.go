package exercise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/pose"
)

func TestDefaultProfiles(t *testing.T) {
	p := DefaultProfiles()
	assert.Len(t, p, 21)

	pushup, ok := p.Get("PushUp")
	require.True(t, ok)
	assert.Equal(t, 90.0, pushup.DownThreshold)
	assert.Equal(t, 160.0, pushup.UpThreshold)
	assert.Equal(t, time.Second, pushup.RepCooldown)
	assert.Equal(t, 5.0, pushup.CaloriesPerRep)

	plank, ok := p.Get("plank")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, plank.RepCooldown)
	assert.Equal(t, 160.0, plank.DownThreshold)

	squat, _ := p.Get("squat")
	assert.Equal(t, 3.0, squat.CaloriesPerRep)

	for name, profile := range p {
		assert.Less(t, profile.DownThreshold, profile.UpThreshold, name)
		assert.GreaterOrEqual(t, profile.RepCooldown, time.Duration(0), name)
	}

	_, ok = p.Get("handstand")
	assert.False(t, ok)
}

func TestDefaultProfiles_ReturnsCopies(t *testing.T) {
	a := DefaultProfiles()
	delete(a, "pushup")

	_, ok := DefaultProfiles().Get("pushup")
	assert.True(t, ok)
}

func TestProfiles_Names(t *testing.T) {
	names := DefaultProfiles().Names()
	require.Len(t, names, 21)
	assert.Equal(t, "pushup", names[0])
	assert.Equal(t, "warrior I", names[12])
	assert.Equal(t, "triangle pose", names[20])

	extended := DefaultProfiles().With(Profile{Name: "Wall Sit", DownThreshold: 80, UpThreshold: 100})
	names = extended.Names()
	assert.Equal(t, "Wall Sit", names[len(names)-1])
}

func TestProfiles_With(t *testing.T) {
	base := DefaultProfiles()
	updated := base.With(Profile{Name: "pushup", DownThreshold: 80, UpThreshold: 150, RepCooldown: 0})

	orig, _ := base.Get("pushup")
	got, _ := updated.Get("pushup")
	assert.Equal(t, 90.0, orig.DownThreshold)
	assert.Equal(t, 80.0, got.DownThreshold)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewDefaultRegistry(DefaultProfiles())

	tests := []struct {
		name string
		want Kind
	}{
		{"pushup", KindThresholdGate},
		{"Squat", KindThresholdGate},
		{"lunge", KindThresholdGate},
		{"burpee", KindThresholdGate},
		{"plank", KindHoldTimer},
		{"downward dog", KindHoldTimer},
		{"tree pose", KindUnsupported},
		{"crunch", KindUnsupported},
		{"", KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Lookup(tt.name).Kind())
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	profiles := DefaultProfiles().With(Profile{Name: "bicep curl", DownThreshold: 40, UpThreshold: 160})
	r := NewDefaultRegistry(profiles)
	require.Equal(t, KindUnsupported, r.Lookup("bicep curl").Kind())

	r.RegisterGate("Bicep Curl", Single(LeftArm))
	assert.Equal(t, KindThresholdGate, r.Lookup("bicep curl").Kind())

	// No profile, no rule.
	r.RegisterGate("handstand", Single(LeftArm))
	assert.Equal(t, KindUnsupported, r.Lookup("handstand").Kind())
}

func TestRegistry_BurpeeUsesSquatProfile(t *testing.T) {
	r := NewDefaultRegistry(DefaultProfiles())
	gate, ok := r.Lookup("burpee").(ThresholdGate)
	require.True(t, ok)
	assert.Equal(t, "squat", gate.Profile.Name)
}

func TestBilateral(t *testing.T) {
	measure := Bilateral(LeftArm, RightArm)

	joints := pose.PushupPose(90, true)
	got, ok := measure(joints)
	require.True(t, ok)
	assert.InDelta(t, 90, got, 1e-6)

	joints[pose.RightElbow] = joints[pose.RightShoulder]
	delete(joints, pose.LeftWrist)
	_, ok = measure(joints)
	// Right side is degenerate but present, so it still measures.
	assert.True(t, ok)

	_, ok = measure(pose.SquatPose(90))
	assert.False(t, ok)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), c.Now())

	later := epoch.Add(time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}
