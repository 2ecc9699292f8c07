package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/server/api"
)

// maxFrameBody caps the size of a posted joint set.
const maxFrameBody = 64 << 10

// SessionHandler exposes the live workout session.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a SessionHandler for a.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// SetupRoutes registers the session routes on r.
func (h *SessionHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/session", h.HandleGet).Methods("GET").Name("session")
	r.HandleFunc("/api/session/reset", h.HandleReset).Methods("POST").Name("session-reset")
	r.HandleFunc("/api/session/exercise", h.HandleSelectExercise).Methods("PUT").Name("session-exercise")
	r.HandleFunc("/api/session/enabled", h.HandleSetEnabled).Methods("PUT").Name("session-enabled")
	r.HandleFunc("/api/session/start", h.HandleStart).Methods("POST").Name("session-start")
	r.HandleFunc("/api/session/stop", h.HandleStop).Methods("POST").Name("session-stop")
	r.HandleFunc("/api/frames", h.HandleFrame).Methods("POST").Name("frames")
}

type sessionResponse struct {
	Exercise string                `json:"exercise"`
	Reps     int                   `json:"reps"`
	Phase    exercise.Phase        `json:"phase"`
	Enabled  bool                  `json:"enabled"`
	Workout  app.WorkoutStatus     `json:"workout"`
	Latest   *exercise.FrameResult `json:"latest,omitempty"`
}

type selectExerciseRequest struct {
	Exercise string `json:"exercise"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type frameRequest struct {
	// Joints is null when no person was detected.
	Joints   map[string]pose.Point2D `json:"joints"`
	Exercise string                  `json:"exercise,omitempty"`
}

func (h *SessionHandler) session() sessionResponse {
	stats := h.app.Stats()
	resp := sessionResponse{
		Exercise: stats.Exercise,
		Reps:     stats.Reps,
		Phase:    stats.Phase,
		Enabled:  h.app.IsEnabled(),
		Workout:  h.app.WorkoutStatus(),
	}
	if latest, ok := h.app.LatestResult(); ok {
		resp.Latest = &latest.Result
	}
	return resp
}

// HandleGet handles GET /api/session.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.session())
}

// HandleReset handles POST /api/session/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.app.Reset()
	api.WriteJSON(w, http.StatusOK, h.session())
}

// HandleSelectExercise handles PUT /api/session/exercise.
func (h *SessionHandler) HandleSelectExercise(w http.ResponseWriter, r *http.Request) {
	var req selectExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Exercise == "" {
		api.WriteError(w, http.StatusBadRequest, "Exercise is required")
		return
	}

	if err := h.app.SelectExercise(req.Exercise); err != nil {
		if errors.Is(err, app.ErrUnknownExercise) {
			api.WriteError(w, http.StatusNotFound, fmt.Sprintf("Unknown exercise: %s", req.Exercise))
			return
		}
		log.Errorf("select exercise: %s", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to select exercise")
		return
	}

	api.WriteJSON(w, http.StatusOK, h.session())
}

// HandleSetEnabled handles PUT /api/session/enabled.
func (h *SessionHandler) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		api.WriteError(w, http.StatusBadRequest, "Enabled is required")
		return
	}

	h.app.SetEnabled(*req.Enabled)
	api.WriteJSON(w, http.StatusOK, h.session())
}

// HandleStart handles POST /api/session/start.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.app.StartWorkout(); err != nil {
		if errors.Is(err, app.ErrWorkoutActive) {
			api.WriteError(w, http.StatusConflict, "Workout already active")
			return
		}
		log.Errorf("start workout: %s", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to start workout")
		return
	}

	api.WriteJSON(w, http.StatusOK, h.app.WorkoutStatus())
}

// HandleStop handles POST /api/session/stop and returns the logged workout.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	workout, err := h.app.StopWorkout()
	if err != nil {
		if errors.Is(err, app.ErrNoWorkout) {
			api.WriteError(w, http.StatusConflict, "No active workout")
			return
		}
		log.Errorf("stop workout: %s", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to log workout")
		return
	}

	api.WriteJSON(w, http.StatusOK, workout)
}

// HandleFrame handles POST /api/frames. External landmark extractors push a
// joint set and receive the frame result.
func (h *SessionHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var joints pose.JointSet
	if req.Joints != nil {
		joints = make(pose.JointSet, len(req.Joints))
		for name, p := range req.Joints {
			j := pose.Joint(name)
			if !j.Valid() {
				api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown joint: %s", name))
				return
			}
			if !p.Finite() {
				api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid coordinates for %s", name))
				return
			}
			joints[j] = p
		}
	}

	if req.Exercise != "" {
		if err := h.app.SelectExercise(req.Exercise); err != nil {
			api.WriteError(w, http.StatusNotFound, fmt.Sprintf("Unknown exercise: %s", req.Exercise))
			return
		}
	}

	update := h.app.ProcessJoints(joints)
	api.WriteJSON(w, http.StatusOK, update.Result)
}
