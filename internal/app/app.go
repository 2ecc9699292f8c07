// Package app wires capture, pose detection, the exercise state machine,
// the workout log and notifications into one workout session.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/form"
	"github.com/ayusman/repcoach/internal/metrics"
	"github.com/ayusman/repcoach/internal/plugin"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/store"
)

var (
	// ErrUnknownExercise is returned when selecting an exercise without a profile.
	ErrUnknownExercise = errors.New("unknown exercise")
	// ErrWorkoutActive is returned when starting a workout while one is running.
	ErrWorkoutActive = errors.New("workout already active")
	// ErrNoWorkout is returned when stopping without an active workout.
	ErrNoWorkout = errors.New("no active workout")
)

const (
	defaultMilestoneEvery   = 10
	defaultFormWarningBelow = 60
	defaultPluginTimeout    = 5 * time.Second
	subscriberBuffer        = 16
)

// Config holds configuration options for the application.
type Config struct {
	Store            *store.Store
	Metrics          *metrics.Manager
	Profiles         exercise.Profiles
	PostureThreshold float64
	DefaultExercise  string
	// Clock drives rep cooldowns and hold timers. Defaults to the system clock.
	Clock exercise.Clock

	// Camera overrides the frame source built from CameraID or VideoFile.
	Camera       capture.Camera
	CameraID     int
	VideoFile    string
	MotionThresh float64
	// Detector overrides the MediaPipe pose detector.
	Detector pose.Detector

	PluginDir        string
	PluginTimeout    time.Duration
	MilestoneEvery   int
	FormWarningBelow int
}

// Update is one processed frame as published to subscribers.
type Update struct {
	Exercise  string               `json:"exercise"`
	Result    exercise.FrameResult `json:"result"`
	Timestamp time.Time            `json:"timestamp"`
}

// workout tracks the active workout session.
type workout struct {
	exercise  string
	start     time.Time
	scoreSum  int
	scoreN    int
	milestone int
}

// App is the main application that orchestrates rep counting, logging and
// notifications.
type App struct {
	config   Config
	clock    exercise.Clock
	registry *exercise.Registry

	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.ActivityGate
	detector pose.Detector

	pluginMgr *plugin.Manager
	notifier  *plugin.Notifier

	// sessionMu guards the machine and everything derived from its results.
	sessionMu sync.Mutex
	machine   *exercise.Machine
	exercise  string
	active    *workout
	latest    *Update
	lastReps  int
	warned    bool
	jpeg      []byte

	subMu       sync.Mutex
	subscribers map[int]chan Update
	nextSubID   int

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Profiles == nil {
		config.Profiles = exercise.DefaultProfiles()
	}
	if config.PostureThreshold <= 0 {
		config.PostureThreshold = form.DefaultPostureThreshold
	}
	if config.DefaultExercise == "" {
		config.DefaultExercise = "pushup"
	}
	if config.Clock == nil {
		config.Clock = exercise.SystemClock()
	}
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0 // 1% pixel change
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = defaultPluginTimeout
	}
	if config.MilestoneEvery < 0 {
		config.MilestoneEvery = 0
	}
	if config.FormWarningBelow == 0 {
		config.FormWarningBelow = defaultFormWarningBelow
	}

	registry := exercise.NewDefaultRegistry(config.Profiles)

	a := &App{
		config:      config,
		clock:       config.Clock,
		registry:    registry,
		camera:      config.Camera,
		motion:      capture.NewMotionDetector(config.MotionThresh),
		gate:        capture.NewDefaultActivityGate(),
		detector:    config.Detector,
		pluginMgr:   plugin.NewManager(config.PluginDir),
		subscribers: make(map[int]chan Update),
		enabled:     true,
	}
	a.notifier = plugin.NewNotifier(a.pluginMgr, plugin.NewExecutor(config.PluginTimeout))
	if config.Metrics != nil {
		a.notifier.OnFailure(func(string, error) {
			config.Metrics.CounterPluginFailures.Inc()
		})
	}

	if a.camera == nil {
		if config.VideoFile != "" {
			a.camera = capture.NewVideoFile(config.VideoFile, true)
		} else {
			a.camera = capture.NewCamera(config.CameraID)
		}
	}

	if a.detector == nil {
		if mp, err := pose.NewMediaPipeDetector(pose.DefaultThresholds()); err == nil {
			a.detector = mp
			log.Infoln("using MediaPipe pose detection")
		} else {
			log.Warnf("MediaPipe not available (%s), using mock detector", err)
			a.detector = pose.NewMockDetector()
		}
	}

	a.exercise = a.initialExercise()
	a.machine = exercise.NewMachine(exercise.MachineConfig{
		Registry: registry,
		Assessor: form.NewDefaultAssessor(config.PostureThreshold),
		Clock:    config.Clock,
		Exercise: a.exercise,
	})

	return a
}

// initialExercise restores the last selected exercise if it still exists.
func (a *App) initialExercise() string {
	if a.config.Store != nil {
		last, err := a.config.Store.Settings().Get(store.KeyLastExercise)
		if err == nil {
			if _, ok := a.config.Profiles.Get(last); ok {
				return last
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Warnf("load last exercise: %s", err)
		}
	}
	return a.config.DefaultExercise
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Profiles returns the exercise profile table.
func (a *App) Profiles() exercise.Profiles {
	return a.config.Profiles
}

// Registry returns the exercise variant registry.
func (a *App) Registry() *exercise.Registry {
	return a.registry
}

// Store returns the workout store, nil when running without one.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// ProcessJoints feeds one frame's joints to the state machine, publishes the
// result and fires any notifications it triggers.
func (a *App) ProcessJoints(joints pose.JointSet) Update {
	a.sessionMu.Lock()

	result := a.machine.Process(joints, a.exercise)
	update := Update{
		Exercise:  a.exercise,
		Result:    result,
		Timestamp: a.clock.Now(),
	}
	a.latest = &update

	events := a.track(update)
	prevReps := a.lastReps
	a.lastReps = result.Reps

	a.sessionMu.Unlock()

	a.observe(update, prevReps)
	a.publish(update)
	for _, ev := range events {
		a.notifier.Dispatch(context.Background(), ev)
	}

	return update
}

// track updates workout aggregates and returns the events a result triggers.
// Must be called with sessionMu held.
func (a *App) track(u Update) []plugin.Event {
	r := u.Result
	detected := r.Phase != exercise.PhaseNoDetection && r.Phase != exercise.PhaseNotImplemented

	var events []plugin.Event

	if a.active != nil && detected {
		a.active.scoreSum += r.Form.Score
		a.active.scoreN++

		every := a.config.MilestoneEvery
		if every > 0 && r.Reps > a.lastReps && r.Reps%every == 0 && r.Reps != a.active.milestone {
			a.active.milestone = r.Reps
			events = append(events, plugin.Event{
				Type:      plugin.EventRepMilestone,
				Exercise:  u.Exercise,
				Reps:      r.Reps,
				FormScore: r.Form.Score,
				Message:   fmt.Sprintf("%d reps", r.Reps),
				Timestamp: u.Timestamp,
			})
		}
	}

	// Form warnings fire once per drop below the warning level.
	if detected {
		low := r.Form.Score < a.config.FormWarningBelow
		if low && !a.warned && a.active != nil {
			events = append(events, plugin.Event{
				Type:      plugin.EventFormWarning,
				Exercise:  u.Exercise,
				Reps:      r.Reps,
				FormScore: r.Form.Score,
				Issues:    r.Form.Issues,
				Message:   fmt.Sprintf("form score %d", r.Form.Score),
				Timestamp: u.Timestamp,
			})
		}
		a.warned = low
	}

	return events
}

func (a *App) observe(u Update, prevReps int) {
	m := a.config.Metrics
	if m == nil {
		return
	}
	r := u.Result
	m.CounterFrames.WithLabelValues(string(r.Phase)).Inc()
	if r.Reps > prevReps {
		m.CounterReps.WithLabelValues(exercise.Normalize(u.Exercise)).Add(float64(r.Reps - prevReps))
	}
	m.GaugeCurrentReps.Set(float64(r.Reps))
	if r.Phase != exercise.PhaseNoDetection && r.Phase != exercise.PhaseNotImplemented {
		m.GaugeFormScore.Set(float64(r.Form.Score))
	}
}

// Subscribe returns a channel receiving every processed frame and a function
// that cancels the subscription. Slow subscribers miss updates.
func (a *App) Subscribe() (<-chan Update, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSubID
	a.nextSubID++
	ch := make(chan Update, subscriberBuffer)
	a.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.subMu.Lock()
			defer a.subMu.Unlock()
			delete(a.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (a *App) publish(u Update) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for _, ch := range a.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}

// Exercise returns the selected exercise.
func (a *App) Exercise() string {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	return a.exercise
}

// SelectExercise switches the session to another exercise. Switching to a
// different exercise resets the counter and is remembered across restarts.
func (a *App) SelectExercise(name string) error {
	profile, ok := a.config.Profiles.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExercise, name)
	}

	a.sessionMu.Lock()
	changed := exercise.Normalize(a.exercise) != exercise.Normalize(profile.Name)
	if changed {
		a.exercise = profile.Name
		a.resetLocked()
		if a.active != nil {
			a.active.exercise = profile.Name
		}
	}
	a.sessionMu.Unlock()

	if !changed {
		return nil
	}

	log.Infof("exercise selected: %s", profile.Name)
	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.KeyLastExercise, profile.Name); err != nil {
			log.Warnf("save last exercise: %s", err)
		}
	}
	return nil
}

// Reset zeroes the rep counter of the current session.
func (a *App) Reset() {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	a.resetLocked()
}

func (a *App) resetLocked() {
	a.machine.Reset()
	a.lastReps = 0
	a.warned = false
	if a.config.Metrics != nil {
		a.config.Metrics.GaugeCurrentReps.Set(0)
	}
}

// Stats returns the current session state.
func (a *App) Stats() exercise.Stats {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	stats := a.machine.Stats()
	stats.Exercise = a.exercise
	return stats
}

// LatestResult returns the most recent processed frame.
func (a *App) LatestResult() (Update, bool) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if a.latest == nil {
		return Update{}, false
	}
	return *a.latest, true
}

// LatestJPEG returns the most recent annotated camera frame, nil before the
// first frame.
func (a *App) LatestJPEG() []byte {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	return a.jpeg
}

func (a *App) setJPEG(b []byte) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	a.jpeg = b
}

// WorkoutStatus describes the active workout.
type WorkoutStatus struct {
	Active   bool      `json:"active"`
	Exercise string    `json:"exercise,omitempty"`
	Started  time.Time `json:"started,omitempty"`
	Elapsed  float64   `json:"elapsed_seconds"`
	Reps     int       `json:"reps"`
}

// StartWorkout begins a workout on the selected exercise. The rep counter
// is reset.
func (a *App) StartWorkout() error {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if a.active != nil {
		return ErrWorkoutActive
	}

	a.resetLocked()
	a.active = &workout{
		exercise: a.exercise,
		start:    a.clock.Now(),
	}

	log.Infof("workout started: %s", a.exercise)
	return nil
}

// WorkoutStatus returns the state of the active workout.
func (a *App) WorkoutStatus() WorkoutStatus {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if a.active == nil {
		return WorkoutStatus{}
	}
	return WorkoutStatus{
		Active:   true,
		Exercise: a.active.exercise,
		Started:  a.active.start,
		Elapsed:  a.clock.Now().Sub(a.active.start).Seconds(),
		Reps:     a.machine.Stats().Reps,
	}
}

// StopWorkout ends the active workout, logs it and notifies plugins.
// The form score is the average over frames where the exercise was tracked.
func (a *App) StopWorkout() (*store.Workout, error) {
	a.sessionMu.Lock()
	w := a.active
	if w == nil {
		a.sessionMu.Unlock()
		return nil, ErrNoWorkout
	}
	a.active = nil
	reps := a.machine.Stats().Reps
	now := a.clock.Now()
	a.sessionMu.Unlock()

	duration := now.Sub(w.start)
	var score float64
	if w.scoreN > 0 {
		score = float64(w.scoreSum) / float64(w.scoreN)
	}
	var calories float64
	if profile, ok := a.config.Profiles.Get(w.exercise); ok {
		calories = float64(reps) * profile.CaloriesPerRep
	}

	entry := &store.Workout{
		Timestamp:        now,
		ExerciseType:     w.exercise,
		Reps:             reps,
		DurationMinutes:  roundTo(duration.Minutes(), 2),
		FormScore:        roundTo(score, 1),
		CaloriesEstimate: roundTo(calories, 1),
	}

	if a.config.Store != nil {
		if err := a.config.Store.Workouts().Log(entry); err != nil {
			return nil, fmt.Errorf("log workout: %w", err)
		}
	}
	if a.config.Metrics != nil {
		a.config.Metrics.CounterWorkouts.WithLabelValues(exercise.Normalize(w.exercise)).Inc()
	}

	log.WithFields(log.Fields{
		"exercise": entry.ExerciseType,
		"reps":     entry.Reps,
		"minutes":  entry.DurationMinutes,
		"score":    entry.FormScore,
	}).Infoln("workout complete")

	a.notifier.Dispatch(context.Background(), plugin.Event{
		Type:            plugin.EventWorkoutComplete,
		Exercise:        w.exercise,
		Reps:            reps,
		FormScore:       int(entry.FormScore + 0.5),
		DurationSeconds: duration.Seconds(),
		Message:         fmt.Sprintf("%d %s reps", reps, w.exercise),
		Timestamp:       now,
	})

	return entry, nil
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the pose detector.
func (a *App) Detector() pose.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Start opens the camera and begins the capture pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(capture.IdleFPS)
	a.gate.Reset()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Infoln("capture pipeline started")
	return nil
}

// Stop halts the capture pipeline and releases capture resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		log.Errorf("close camera: %s", err)
	}
	a.motion.Reset()

	log.Infoln("capture pipeline stopped")
}

// Close stops the pipeline, waits for pending notifications and releases
// the detector.
func (a *App) Close() error {
	a.Stop()
	a.notifier.Wait()
	a.motion.Close()
	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
