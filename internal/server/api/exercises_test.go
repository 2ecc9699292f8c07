package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/plugin"
)

func TestCatalogHandler_Exercises(t *testing.T) {
	r := mux.NewRouter()
	NewCatalogHandler(exercise.NewDefaultRegistry(exercise.DefaultProfiles()), nil).SetupRoutes(r)

	rec := serve(r, http.MethodGet, "/api/exercises")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listExercisesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Exercises, 21)

	byName := map[string]exerciseResponse{}
	for _, e := range resp.Exercises {
		byName[e.Name] = e
	}

	assert.Equal(t, "pushup", resp.Exercises[0].Name)
	assert.Equal(t, exercise.KindThresholdGate, byName["pushup"].Kind)
	assert.Equal(t, 90.0, byName["pushup"].DownThreshold)
	assert.Equal(t, 160.0, byName["pushup"].UpThreshold)
	assert.Equal(t, 1.0, byName["pushup"].RepCooldown)
	assert.Equal(t, exercise.KindHoldTimer, byName["plank"].Kind)
	assert.Equal(t, 2.0, byName["plank"].RepCooldown)
	assert.Equal(t, exercise.KindUnsupported, byName["crunch"].Kind)
}

func TestCatalogHandler_Plugins(t *testing.T) {
	r := mux.NewRouter()
	NewCatalogHandler(exercise.NewDefaultRegistry(exercise.DefaultProfiles()), nil).SetupRoutes(r)

	rec := serve(r, http.MethodGet, "/api/plugins")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"plugins":[]}`, rec.Body.String())

	root := t.TempDir()
	dir := filepath.Join(root, "desktop-notify")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := `{"name":"desktop-notify","version":"1.0.0","description":"Desktop notifications","executable":"run.sh","events":["rep_milestone","workout_complete"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644))

	plugins := plugin.NewManager(root)
	require.NoError(t, plugins.Discover())

	r = mux.NewRouter()
	NewCatalogHandler(exercise.NewDefaultRegistry(exercise.DefaultProfiles()), plugins).SetupRoutes(r)

	rec = serve(r, http.MethodGet, "/api/plugins")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listPluginsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Plugins, 1)
	assert.Equal(t, "desktop-notify", resp.Plugins[0].Name)
	assert.Equal(t, "1.0.0", resp.Plugins[0].Version)
	assert.Equal(t, []plugin.EventType{plugin.EventRepMilestone, plugin.EventWorkoutComplete}, resp.Plugins[0].Events)
}
