package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/pose"
)

func dialResults(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/results"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return conn
}

func TestResultsHandler(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn := dialResults(t, ts)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.GaugeWSClients) == 1
	}, time.Second, 10*time.Millisecond)

	env.app.ProcessJoints(pose.PushupPose(180, true))
	env.clock.Advance(2 * time.Second)
	env.app.ProcessJoints(pose.PushupPose(45, true))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second app.Update
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "pushup", first.Exercise)
	assert.Equal(t, exercise.PhaseRest, first.Result.Phase)
	assert.Equal(t, exercise.PhaseDown, second.Result.Phase)
	assert.InDelta(t, 45, second.Result.Angle, 1e-6)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.GaugeWSClients) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestResultsHandler_MultipleClients(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	a := dialResults(t, ts)
	defer a.Close()
	b := dialResults(t, ts)
	defer b.Close()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.GaugeWSClients) == 2
	}, time.Second, 10*time.Millisecond)

	env.app.ProcessJoints(nil)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var u app.Update
		require.NoError(t, conn.ReadJSON(&u))
		assert.Equal(t, exercise.PhaseNoDetection, u.Result.Phase)
	}
}
