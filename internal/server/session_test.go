package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/metrics"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/store"
)

type testEnv struct {
	server  *Server
	app     *app.App
	clock   *exercise.ManualClock
	store   *store.Store
	metrics *metrics.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Workouts are logged at clock time and queried against the wall clock.
	clock := exercise.NewManualClock(time.Now())
	m, reg := metrics.NewTestManagerAndRegistry()
	a := app.New(app.Config{
		Store:     s,
		Metrics:   m,
		Clock:     clock,
		Camera:    capture.NewMockCamera(nil, false),
		Detector:  pose.NewMockDetector(),
		PluginDir: filepath.Join(t.TempDir(), "plugins"),
	})
	t.Cleanup(func() { _ = a.Close() })

	return &testEnv{
		server:  New(Config{App: a, Metrics: m, Gatherer: reg}),
		app:     a,
		clock:   clock,
		store:   s,
		metrics: m,
	}
}

// frameBody encodes joints as a POST /api/frames request body.
func frameBody(t *testing.T, joints pose.JointSet) string {
	t.Helper()

	req := frameRequest{}
	if joints != nil {
		req.Joints = make(map[string]pose.Point2D, len(joints))
		for j, p := range joints {
			req.Joints[string(j)] = p
		}
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) postFrame(t *testing.T, joints pose.JointSet) exercise.FrameResult {
	t.Helper()

	rec := serve(e.server, http.MethodPost, "/api/frames", frameBody(t, joints))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result exercise.FrameResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	return result
}

func (e *testEnv) session(t *testing.T) sessionResponse {
	t.Helper()

	rec := serve(e.server, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSession_Get(t *testing.T) {
	env := newTestEnv(t)

	resp := env.session(t)
	assert.Equal(t, "pushup", resp.Exercise)
	assert.Equal(t, 0, resp.Reps)
	assert.Equal(t, exercise.PhaseRest, resp.Phase)
	assert.True(t, resp.Enabled)
	assert.False(t, resp.Workout.Active)
	assert.Nil(t, resp.Latest)
}

func TestSession_Frames(t *testing.T) {
	env := newTestEnv(t)

	r := env.postFrame(t, pose.PushupPose(180, true))
	assert.Equal(t, exercise.PhaseRest, r.Phase)

	env.clock.Advance(2 * time.Second)
	r = env.postFrame(t, pose.PushupPose(45, true))
	assert.Equal(t, exercise.PhaseDown, r.Phase)
	assert.InDelta(t, 45, r.Angle, 1e-6)

	r = env.postFrame(t, pose.PushupPose(180, false))
	assert.Equal(t, exercise.PhaseUp, r.Phase)
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, 80, r.Form.Score)
	assert.NotEmpty(t, r.Form.Issues)

	r = env.postFrame(t, nil)
	assert.Equal(t, exercise.PhaseNoDetection, r.Phase)
	assert.Equal(t, 1, r.Reps)
	assert.Equal(t, 0, r.Form.Score)

	resp := env.session(t)
	assert.Equal(t, 1, resp.Reps)
	assert.Equal(t, exercise.PhaseUp, resp.Phase)
	require.NotNil(t, resp.Latest)
	assert.Equal(t, exercise.PhaseNoDetection, resp.Latest.Phase)
}

func TestSession_Frames_MissingJoints(t *testing.T) {
	env := newTestEnv(t)

	r := env.postFrame(t, pose.JointSet{pose.LeftKnee: {X: 0.5, Y: 0.5}})
	assert.Equal(t, exercise.PhaseNoDetection, r.Phase)
	assert.Contains(t, r.Form.Issues, "Required joints not visible")
}

func TestSession_Frames_Invalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `{not json`, http.StatusBadRequest},
		{"unknown joint", `{"joints":{"NOSE":{"x":0.5,"y":0.5}}}`, http.StatusBadRequest},
		{"unknown exercise", `{"joints":null,"exercise":"handstand"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(env.server, http.MethodPost, "/api/frames", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSession_Frames_SelectsExercise(t *testing.T) {
	env := newTestEnv(t)

	body := fmt.Sprintf(`{"exercise":"squat","joints":%s}`, mustJoints(t, pose.SquatPose(175)))
	rec := serve(env.server, http.MethodPost, "/api/frames", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "squat", env.app.Exercise())
}

func mustJoints(t *testing.T, joints pose.JointSet) string {
	t.Helper()
	data, err := json.Marshal(joints)
	require.NoError(t, err)
	return string(data)
}

func TestSession_SelectExercise(t *testing.T) {
	env := newTestEnv(t)

	env.clock.Advance(2 * time.Second)
	env.postFrame(t, pose.PushupPose(45, true))
	env.postFrame(t, pose.PushupPose(180, true))
	require.Equal(t, 1, env.session(t).Reps)

	rec := serve(env.server, http.MethodPut, "/api/session/exercise", `{"exercise":"plank"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "plank", resp.Exercise)
	assert.Equal(t, 0, resp.Reps)

	rec = serve(env.server, http.MethodPut, "/api/session/exercise", `{"exercise":"handstand"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(env.server, http.MethodPut, "/api/session/exercise", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(env.server, http.MethodPut, "/api/session/exercise", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_Reset(t *testing.T) {
	env := newTestEnv(t)

	env.clock.Advance(2 * time.Second)
	env.postFrame(t, pose.PushupPose(45, true))
	env.postFrame(t, pose.PushupPose(180, true))

	rec := serve(env.server, http.MethodPost, "/api/session/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Reps)
	assert.Equal(t, exercise.PhaseRest, resp.Phase)
}

func TestSession_SetEnabled(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, http.MethodPut, "/api/session/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.app.IsEnabled())

	rec = serve(env.server, http.MethodPut, "/api/session/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.app.IsEnabled())
}

func TestSession_Workout(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, http.MethodPost, "/api/session/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(env.server, http.MethodPost, "/api/session/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status app.WorkoutStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.Active)
	assert.Equal(t, "pushup", status.Exercise)

	rec = serve(env.server, http.MethodPost, "/api/session/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 3; i++ {
		env.clock.Advance(2 * time.Second)
		env.postFrame(t, pose.PushupPose(45, true))
		env.postFrame(t, pose.PushupPose(180, true))
	}
	env.clock.Advance(54 * time.Second)

	rec = serve(env.server, http.MethodPost, "/api/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var w store.Workout
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&w))
	assert.Equal(t, "pushup", w.ExerciseType)
	assert.Equal(t, 3, w.Reps)
	assert.Equal(t, 1.0, w.DurationMinutes)
	assert.Equal(t, 100.0, w.FormScore)
	assert.Equal(t, 15.0, w.CaloriesEstimate)

	// The logged workout shows up in the workout log.
	rec = serve(env.server, http.MethodGet, "/api/workouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), w.ID)

	rec = serve(env.server, http.MethodGet, "/api/workouts/stats?exercise=pushup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats store.WorkoutStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalWorkouts)
	assert.Equal(t, 3, stats.TotalReps)
}

func TestSession_Exercises(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, http.MethodGet, "/api/exercises", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"name":"downward dog"`))
}
