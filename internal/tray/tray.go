// Package tray provides a system tray interface for the repcoach workout tracker.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Status is the session state shown in the menu.
type Status struct {
	Exercise string
	Reps     int
	Phase    string
	Workout  bool
}

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onWorkout   func(start bool) error
	onReset     func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	workout     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuWorkout  *systray.MenuItem
	menuExercise *systray.MenuItem
	menuReps     *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when detection is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnWorkout sets the callback for starting (true) and stopping (false) a
// workout. The menu keeps its state when the callback fails.
func (t *Tray) OnWorkout(fn func(start bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWorkout = fn
}

// OnReset sets the callback for the reset counter menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback for the open dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle(title(0))
	systray.SetTooltip("repcoach workout tracker")

	t.mu.Lock()
	t.menuExercise = systray.AddMenuItem(exerciseLabel(""), "Selected exercise")
	t.menuExercise.Disable()
	t.menuReps = systray.AddMenuItem(repsLabel(Status{}), "Current session")
	t.menuReps.Disable()
	systray.AddSeparator()

	t.menuWorkout = systray.AddMenuItem(workoutLabel(false), "Start or stop a logged workout")
	menuReset := systray.AddMenuItem("Reset Counter", "Reset the rep counter")
	t.menuToggle = systray.AddMenuItem(toggleLabel(true), "Pause or resume detection")
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit repcoach")
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuWorkout.ClickedCh:
				t.handleWorkout()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleReset handles the reset menu item click.
func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleLabel(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleWorkout starts or stops a workout.
func (t *Tray) handleWorkout() {
	t.mu.RLock()
	start := !t.workout
	callback := t.onWorkout
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(start); err != nil {
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.workout = start
	t.menuWorkout.SetTitle(workoutLabel(start))
}

// SetStatus updates the session display in the title and menu.
func (t *Tray) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuReps == nil {
		return
	}
	systray.SetTitle(title(s.Reps))
	t.menuExercise.SetTitle(exerciseLabel(s.Exercise))
	t.menuReps.SetTitle(repsLabel(s))
	if s.Workout != t.workout {
		t.workout = s.Workout
		t.menuWorkout.SetTitle(workoutLabel(s.Workout))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func title(reps int) string {
	return fmt.Sprintf("RC %d", reps)
}

func exerciseLabel(exercise string) string {
	if exercise == "" {
		return "Exercise: none"
	}
	return "Exercise: " + exercise
}

func repsLabel(s Status) string {
	if s.Phase == "" {
		return fmt.Sprintf("Reps: %d", s.Reps)
	}
	return fmt.Sprintf("Reps: %d (%s)", s.Reps, s.Phase)
}

func workoutLabel(active bool) string {
	if active {
		return "■ Stop Workout"
	}
	return "▶ Start Workout"
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}
