// Package main provides a desktop notification plugin.
// It shows workout events with notify-send on Linux and AppleScript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Event mirrors the event sent by the plugin executor.
type Event struct {
	Type            string   `json:"type"`
	Exercise        string   `json:"exercise"`
	Reps            int      `json:"reps"`
	FormScore       int      `json:"form_score"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Message         string   `json:"message"`
}

// Request represents the input from the plugin executor.
type Request struct {
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	title, body, err := format(req.Event)
	if err != nil {
		writeResponse(err)
		return
	}

	writeResponse(notify(title, body))
}

// format builds the notification title and body for an event.
func format(ev Event) (string, string, error) {
	exercise := titleCase(ev.Exercise)

	switch ev.Type {
	case "rep_milestone":
		return "RepCoach", fmt.Sprintf("%d %s reps, keep going!", ev.Reps, exercise), nil
	case "workout_complete":
		minutes := ev.DurationSeconds / 60
		return "Workout complete", fmt.Sprintf("%s: %d reps in %.1f min, form %d/100", exercise, ev.Reps, minutes, ev.FormScore), nil
	case "form_warning":
		body := fmt.Sprintf("Form score %d", ev.FormScore)
		if len(ev.Issues) > 0 {
			body += ": " + strings.Join(ev.Issues, ", ")
		}
		return "Check your form", body, nil
	default:
		return "", "", fmt.Errorf("unknown event: %s", ev.Type)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", "--app-name=repcoach", title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
