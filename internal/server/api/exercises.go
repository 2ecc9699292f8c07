package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/plugin"
)

// CatalogHandler serves the exercise catalog and the installed plugins.
type CatalogHandler struct {
	registry *exercise.Registry
	plugins  *plugin.Manager
}

// NewCatalogHandler creates a CatalogHandler. plugins may be nil.
func NewCatalogHandler(registry *exercise.Registry, plugins *plugin.Manager) *CatalogHandler {
	return &CatalogHandler{registry: registry, plugins: plugins}
}

// SetupRoutes registers the catalog routes on r.
func (h *CatalogHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/exercises", h.HandleExercises).Methods("GET").Name("list-exercises")
	r.HandleFunc("/api/plugins", h.HandlePlugins).Methods("GET").Name("list-plugins")
}

type exerciseResponse struct {
	Name           string        `json:"name"`
	Kind           exercise.Kind `json:"kind"`
	DownThreshold  float64       `json:"down_threshold"`
	UpThreshold    float64       `json:"up_threshold"`
	RepCooldown    float64       `json:"rep_cooldown_seconds"`
	CaloriesPerRep float64       `json:"calories_per_rep"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

type pluginResponse struct {
	Name        string             `json:"name"`
	Version     string             `json:"version"`
	Description string             `json:"description"`
	Events      []plugin.EventType `json:"events"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

// HandleExercises handles GET /api/exercises.
func (h *CatalogHandler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	profiles := h.registry.Profiles()
	names := profiles.Names()

	resp := listExercisesResponse{Exercises: make([]exerciseResponse, 0, len(names))}
	for _, name := range names {
		p, _ := profiles.Get(name)
		resp.Exercises = append(resp.Exercises, exerciseResponse{
			Name:           p.Name,
			Kind:           h.registry.Lookup(name).Kind(),
			DownThreshold:  p.DownThreshold,
			UpThreshold:    p.UpThreshold,
			RepCooldown:    p.RepCooldown.Seconds(),
			CaloriesPerRep: p.CaloriesPerRep,
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}

// HandlePlugins handles GET /api/plugins.
func (h *CatalogHandler) HandlePlugins(w http.ResponseWriter, r *http.Request) {
	resp := listPluginsResponse{Plugins: []pluginResponse{}}
	if h.plugins != nil {
		for _, p := range h.plugins.List() {
			events := p.Manifest.Events
			if events == nil {
				events = []plugin.EventType{}
			}
			resp.Plugins = append(resp.Plugins, pluginResponse{
				Name:        p.Manifest.Name,
				Version:     p.Manifest.Version,
				Description: p.Manifest.Description,
				Events:      events,
			})
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}
