// Package exercise implements the per-frame exercise state machine that
// counts repetitions from joint angles.
package exercise

import (
	"sort"
	"strings"
	"time"
)

// Profile is the static threshold configuration of one exercise.
type Profile struct {
	Name          string        `json:"name"`
	DownThreshold float64       `json:"down_threshold"`
	UpThreshold   float64       `json:"up_threshold"`
	RepCooldown   time.Duration `json:"rep_cooldown"`
	// CaloriesPerRep is a rough estimate used by the workout log.
	// For hold exercises it is per second held.
	CaloriesPerRep float64 `json:"calories_per_rep"`
}

// Profiles is the profile table keyed by normalized exercise name.
type Profiles map[string]Profile

// Get returns the profile for an exercise name.
func (p Profiles) Get(name string) (Profile, bool) {
	profile, ok := p[Normalize(name)]
	return profile, ok
}

// Names returns the exercise names in the catalog order, followed by any
// additional names in alphabetical order.
func (p Profiles) Names() []string {
	seen := make(map[string]bool, len(p))
	names := make([]string, 0, len(p))
	for _, name := range catalog {
		if profile, ok := p[Normalize(name)]; ok {
			names = append(names, profile.Name)
			seen[Normalize(name)] = true
		}
	}

	var extra []string
	for key, profile := range p {
		if !seen[key] {
			extra = append(extra, profile.Name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

// With returns a copy of the table with profile added or replaced.
func (p Profiles) With(profile Profile) Profiles {
	out := make(Profiles, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[Normalize(profile.Name)] = profile
	return out
}

// Normalize folds an exercise name for lookups.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// catalog is the list of exercises offered to users.
var catalog = []string{
	"pushup", "squat", "plank", "lunge", "burpee", "mountain climber",
	"jumping jack", "crunch", "bicep curl", "tricep dip", "shoulder press",
	"downward dog", "warrior I", "warrior II", "tree pose", "cobra pose",
	"child's pose", "cat-cow", "bridge pose", "seated twist", "triangle pose",
}

const defaultCaloriesPerRep = 5

// DefaultProfiles returns a fresh copy of the built-in profile table.
func DefaultProfiles() Profiles {
	p := make(Profiles, len(catalog))
	add := func(name string, down, up float64, cooldown time.Duration, calories float64) {
		p[Normalize(name)] = Profile{
			Name:           name,
			DownThreshold:  down,
			UpThreshold:    up,
			RepCooldown:    cooldown,
			CaloriesPerRep: calories,
		}
	}

	add("pushup", 90, 160, time.Second, 5)
	add("squat", 70, 160, time.Second, 3)
	add("plank", 160, 180, 2*time.Second, 2)
	add("lunge", 80, 160, time.Second, defaultCaloriesPerRep)
	add("burpee", 60, 160, time.Second, defaultCaloriesPerRep)
	add("mountain climber", 60, 160, time.Second, defaultCaloriesPerRep)
	add("jumping jack", 60, 160, time.Second, defaultCaloriesPerRep)
	add("crunch", 60, 160, time.Second, defaultCaloriesPerRep)
	add("bicep curl", 40, 160, time.Second, defaultCaloriesPerRep)
	add("tricep dip", 60, 160, time.Second, defaultCaloriesPerRep)
	add("shoulder press", 60, 160, time.Second, defaultCaloriesPerRep)

	// Yoga poses only use the down threshold.
	for _, name := range []string{
		"downward dog", "warrior I", "warrior II", "tree pose", "cobra pose",
		"child's pose", "cat-cow", "bridge pose", "seated twist", "triangle pose",
	} {
		add(name, 120, 180, time.Second, defaultCaloriesPerRep)
	}

	return p
}
