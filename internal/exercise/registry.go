package exercise

import "github.com/ayusman/repcoach/internal/pose"

// Joint chains used by the built-in exercises.
var (
	LeftArm      = Chain{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist}
	RightArm     = Chain{pose.RightShoulder, pose.RightElbow, pose.RightWrist}
	LeftLeg      = Chain{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}
	RightLeg     = Chain{pose.RightHip, pose.RightKnee, pose.RightAnkle}
	LeftBodyLine = Chain{pose.LeftShoulder, pose.LeftHip, pose.LeftAnkle}
	LeftPike     = Chain{pose.LeftWrist, pose.LeftHip, pose.LeftAnkle}
)

// Registry maps exercise names to variants.
type Registry struct {
	profiles Profiles
	variants map[string]Variant
}

// NewRegistry creates an empty registry backed by the given profiles.
func NewRegistry(profiles Profiles) *Registry {
	return &Registry{
		profiles: profiles,
		variants: make(map[string]Variant),
	}
}

// NewDefaultRegistry creates a registry with the built-in exercise rules.
// Exercises listed in profiles without a rule resolve to Unsupported.
func NewDefaultRegistry(profiles Profiles) *Registry {
	r := NewRegistry(profiles)

	squat, _ := profiles.Get("squat")
	squatMeasure := Bilateral(LeftLeg, RightLeg)

	r.RegisterGate("pushup", Bilateral(LeftArm, RightArm))
	r.RegisterGate("squat", squatMeasure)
	r.RegisterGate("lunge", Single(LeftLeg))
	// Burpees are counted on the squat movement and thresholds.
	r.Register("burpee", ThresholdGate{Profile: squat, Measure: squatMeasure})
	r.RegisterHold("plank", Single(LeftBodyLine))
	r.RegisterHold("downward dog", Single(LeftPike))

	return r
}

// Register binds a variant to an exercise name.
func (r *Registry) Register(name string, v Variant) {
	r.variants[Normalize(name)] = v
}

// RegisterGate binds a ThresholdGate using the exercise's own profile.
// Names without a profile are left unregistered.
func (r *Registry) RegisterGate(name string, m Measure) {
	if p, ok := r.profiles.Get(name); ok {
		r.Register(name, ThresholdGate{Profile: p, Measure: m})
	}
}

// RegisterHold binds a HoldTimer using the exercise's own profile.
// Names without a profile are left unregistered.
func (r *Registry) RegisterHold(name string, m Measure) {
	if p, ok := r.profiles.Get(name); ok {
		r.Register(name, HoldTimer{Profile: p, Measure: m})
	}
}

// Lookup returns the variant for an exercise, Unsupported if none is registered.
func (r *Registry) Lookup(name string) Variant {
	if v, ok := r.variants[Normalize(name)]; ok {
		return v
	}
	return Unsupported{}
}

// Profiles returns the profile table the registry was built from.
func (r *Registry) Profiles() Profiles {
	return r.profiles
}
