// Package form scores exercise technique with simple angle rules.
package form

import (
	"strings"

	"github.com/ayusman/repcoach/internal/geometry"
	"github.com/ayusman/repcoach/internal/pose"
)

// Score bounds.
const (
	BaselineScore = 100
	MinScore      = 0
)

// Messages emitted without any rule evaluation.
const (
	IssueNoPerson       = "No person detected"
	IssueNotImplemented = "Detection not implemented for this exercise."
	IssueJointsHidden   = "Required joints not visible"
)

// DefaultPostureThreshold is the minimum elbow-shoulder-hip angle for a
// straight body during pushups.
const DefaultPostureThreshold = 160.0

// Assessment is the form feedback for one frame.
type Assessment struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
	Tips   []string `json:"tips"`
}

// NoSubject returns the assessment for a frame without a detected person.
func NoSubject() Assessment {
	return zeroScore(IssueNoPerson)
}

// Unavailable returns the assessment for an exercise without detection rules.
func Unavailable() Assessment {
	return zeroScore(IssueNotImplemented)
}

// JointsHidden returns the assessment for a frame missing the joints the
// exercise is measured on.
func JointsHidden() Assessment {
	return zeroScore(IssueJointsHidden)
}

func zeroScore(issue string) Assessment {
	return Assessment{
		Score:  MinScore,
		Issues: []string{issue},
		Tips:   []string{},
	}
}

// Rule flags a posture problem when the angle measured at Chain[1] falls
// below MinAngle.
type Rule struct {
	Name     string
	Chain    [3]pose.Joint
	MinAngle float64
	Penalty  int
	Issue    string
	Tip      string
}

// Violated reports whether the rule fails for joints.
// Rules whose joints are not all present never fail.
func (r Rule) Violated(joints pose.JointSet) bool {
	angle, ok := geometry.JointAngle(joints, r.Chain[0], r.Chain[1], r.Chain[2])
	if !ok {
		return false
	}
	return angle < r.MinAngle
}

// PushupAlignmentRule checks that the body stays straight during pushups.
func PushupAlignmentRule(threshold float64) Rule {
	return Rule{
		Name:     "body-alignment",
		Chain:    [3]pose.Joint{pose.LeftElbow, pose.LeftShoulder, pose.LeftHip},
		MinAngle: threshold,
		Penalty:  20,
		Issue:    "Keep your body straight",
		Tip:      "Engage your core and maintain a straight line from head to heels",
	}
}

// Assessor evaluates the rules registered for each exercise.
// Exercises without rules always score the baseline.
type Assessor struct {
	rules map[string][]Rule
}

// NewAssessor creates an Assessor with no rules.
func NewAssessor() *Assessor {
	return &Assessor{
		rules: make(map[string][]Rule),
	}
}

// NewDefaultAssessor creates an Assessor with the built-in rules.
func NewDefaultAssessor(postureThreshold float64) *Assessor {
	a := NewAssessor()
	a.AddRule("pushup", PushupAlignmentRule(postureThreshold))
	return a
}

// AddRule registers a rule for an exercise.
func (a *Assessor) AddRule(exercise string, r Rule) {
	key := normalize(exercise)
	a.rules[key] = append(a.rules[key], r)
}

// Rules returns the rules registered for an exercise.
func (a *Assessor) Rules(exercise string) []Rule {
	return a.rules[normalize(exercise)]
}

// Assess scores the frame for the given exercise.
func (a *Assessor) Assess(joints pose.JointSet, exercise string) Assessment {
	if !joints.Detected() {
		return NoSubject()
	}

	result := Assessment{
		Score:  BaselineScore,
		Issues: []string{},
		Tips:   []string{},
	}

	for _, r := range a.rules[normalize(exercise)] {
		if !r.Violated(joints) {
			continue
		}
		result.Score -= r.Penalty
		result.Issues = append(result.Issues, r.Issue)
		result.Tips = append(result.Tips, r.Tip)
	}

	if result.Score < MinScore {
		result.Score = MinScore
	}

	return result
}

func normalize(exercise string) string {
	return strings.ToLower(strings.TrimSpace(exercise))
}
