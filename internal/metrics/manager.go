package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterFrames         *prometheus.CounterVec
	CounterReps           *prometheus.CounterVec
	CounterWorkouts       *prometheus.CounterVec
	CounterRequests       *prometheus.CounterVec
	CounterPluginFailures prometheus.Counter
	CounterRequestPanics  prometheus.Counter

	// gauges
	GaugeCurrentReps prometheus.Gauge
	GaugeFormScore   prometheus.Gauge
	GaugeWSClients   prometheus.Gauge

	// histograms
	HistFrameDuration   prometheus.Histogram
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("repcoach", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("repcoach", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_processed",
		Help:      "The total number of processed frames by resulting phase",
	}, []string{"phase"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps_counted",
		Help:      "The total number of counted reps",
	}, []string{"exercise"})
	counterWorkouts := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workouts_logged",
		Help:      "The total number of logged workouts",
	}, []string{"exercise"})
	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterPluginFailures := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "plugin_failures",
		Help:      "The total number of failed plugin executions",
	})

	counterRequestPanics := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_panics",
		Help:      "The total number of recovered panics while handling requests",
	})

	gaugeCurrentReps := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_reps",
		Help:      "Reps of the current session",
	})
	gaugeFormScore := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "form_score",
		Help:      "Form score of the latest detected frame",
	})
	gaugeWSClients := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ws_clients",
		Help:      "Connected result stream clients",
	})

	histFrameDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5, 1,
			},
			Name: "frame_duration_seconds",
			Help: "Duration of detecting and processing a single frame in seconds",
		},
	)
	histReqDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10, 60,
			},
			Name: "request_duration_seconds",
			Help: "Total duration of requests in seconds",
		},
	)

	return &Manager{
		CounterFrames:         counterFrames,
		CounterReps:           counterReps,
		CounterWorkouts:       counterWorkouts,
		CounterRequests:       counterRequests,
		CounterPluginFailures: counterPluginFailures,
		CounterRequestPanics:  counterRequestPanics,
		GaugeCurrentReps:      gaugeCurrentReps,
		GaugeFormScore:        gaugeFormScore,
		GaugeWSClients:        gaugeWSClients,
		HistFrameDuration:     histFrameDuration,
		HistRequestDuration:   histReqDuration,
	}
}
