package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/repcoach/internal/store"
)

// Default query windows in days.
const (
	DefaultRecentDays   = 7
	DefaultStatsDays    = 30
	DefaultProgressDays = 30
)

// WorkoutHandler handles HTTP requests for the workout log.
type WorkoutHandler struct {
	store *store.Store
}

// NewWorkoutHandler creates a new WorkoutHandler with the given store.
func NewWorkoutHandler(s *store.Store) *WorkoutHandler {
	return &WorkoutHandler{store: s}
}

// SetupRoutes registers the workout routes on r.
func (h *WorkoutHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/workouts", h.HandleList).Methods("GET").Name("list-workouts")
	r.HandleFunc("/api/workouts", h.HandleClear).Methods("DELETE").Name("clear-workouts")
	r.HandleFunc("/api/workouts/stats", h.HandleStats).Methods("GET").Name("workout-stats")
	r.HandleFunc("/api/workouts/progress", h.HandleProgress).Methods("GET").Name("workout-progress")
	r.HandleFunc("/api/workouts/weekly", h.HandleWeekly).Methods("GET").Name("workout-weekly")
	r.HandleFunc("/api/workouts/export", h.HandleExport).Methods("GET").Name("workout-export")
}

type listWorkoutsResponse struct {
	Workouts []*store.Workout `json:"workouts"`
}

type clearWorkoutsResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandleList handles GET /api/workouts?days=N.
func (h *WorkoutHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", DefaultRecentDays)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid days")
		return
	}

	workouts, err := h.store.Workouts().Recent(days)
	if err != nil {
		log.Errorf("list workouts: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to list workouts")
		return
	}
	if workouts == nil {
		workouts = []*store.Workout{}
	}

	WriteJSON(w, http.StatusOK, listWorkoutsResponse{Workouts: workouts})
}

// HandleStats handles GET /api/workouts/stats?exercise=&days=N.
func (h *WorkoutHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", DefaultStatsDays)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid days")
		return
	}

	stats, err := h.store.Workouts().Stats(r.URL.Query().Get("exercise"), days)
	if err != nil {
		log.Errorf("workout stats: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// HandleProgress handles GET /api/workouts/progress?exercise=&days=N.
func (h *WorkoutHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		WriteError(w, http.StatusBadRequest, "Exercise is required")
		return
	}
	days, ok := queryInt(r, "days", DefaultProgressDays)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid days")
		return
	}

	points, err := h.store.Workouts().Progress(exercise, days)
	if err != nil {
		log.Errorf("workout progress: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to compute progress")
		return
	}

	WriteJSON(w, http.StatusOK, points)
}

// HandleWeekly handles GET /api/workouts/weekly.
func (h *WorkoutHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Workouts().WeeklySummary()
	if err != nil {
		log.Errorf("weekly summary: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to compute weekly summary")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// HandleExport handles GET /api/workouts/export and returns the log as CSV.
func (h *WorkoutHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.store.Workouts().ExportCSV(&buf); err != nil {
		log.Errorf("export workouts: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to export workouts")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="workouts.csv"`)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleClear handles DELETE /api/workouts.
func (h *WorkoutHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.Workouts().Clear()
	if err != nil {
		log.Errorf("clear workouts: %s", err)
		WriteError(w, http.StatusInternalServerError, "Failed to clear workouts")
		return
	}

	log.Infof("workout log cleared: %d entries", deleted)
	WriteJSON(w, http.StatusOK, clearWorkoutsResponse{Deleted: deleted})
}
