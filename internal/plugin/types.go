// Package plugin discovers notification plugins and delivers workout events
// to them as subprocesses.
package plugin

import (
	"encoding/json"
	"time"
)

// EventType names a workout event plugins can subscribe to.
type EventType string

const (
	// EventRepMilestone fires every N reps of a session.
	EventRepMilestone EventType = "rep_milestone"
	// EventWorkoutComplete fires when a workout is stopped and logged.
	EventWorkoutComplete EventType = "workout_complete"
	// EventFormWarning fires when the form score drops below the warning level.
	EventFormWarning EventType = "form_warning"
)

// Event is a workout notification.
type Event struct {
	Type      EventType `json:"type"`
	Exercise  string    `json:"exercise"`
	Reps      int       `json:"reps"`
	FormScore int       `json:"form_score"`
	// DurationSeconds is set for workout_complete.
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Issues          []string  `json:"issues,omitempty"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name" validate:"required"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable" validate:"required"`
	Events       []EventType     `json:"events" validate:"dive,oneof=rep_milestone workout_complete form_warning"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin subscribes to t.
func (m Manifest) Handles(t EventType) bool {
	for _, e := range m.Events {
		if e == t {
			return true
		}
	}
	return false
}

// Request is written to a plugin's stdin.
type Request struct {
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
