// Package server provides the HTTP server for the repcoach workout tracker.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/metrics"
	"github.com/ayusman/repcoach/internal/server/api"
	"github.com/ayusman/repcoach/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// App enables the session, frame, result and stream endpoints.
	App *app.App
	// Store enables the workout log endpoints. Defaults to the App's store.
	Store   *store.Store
	Metrics *metrics.Manager
	// Gatherer enables /metrics.
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server for the repcoach application.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Store == nil && config.App != nil {
		config.Store = config.App.Store()
	}

	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router

	r.HandleFunc("/api/health", s.handleHealth).Methods("GET").Name("health")

	if s.config.Store != nil {
		api.NewWorkoutHandler(s.config.Store).SetupRoutes(r)
	}

	if a := s.config.App; a != nil {
		api.NewCatalogHandler(a.Registry(), a.PluginManager()).SetupRoutes(r)

		session := NewSessionHandler(a)
		session.SetupRoutes(r)

		r.Handle("/api/results", NewResultsHandler(a, s.config.Metrics)).Methods("GET").Name("results")
		r.Handle("/api/stream", NewStreamHandler(a)).Methods("GET").Name("stream")
	}

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})).Methods("GET").Name("metrics")
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir))).Methods("GET").Name("static")
	}

	r.Use(PanicRecovery(s.config.Metrics))
	r.Use(LogRequest())
	r.Use(RequestMetrics(s.config.Metrics))
	r.Use(DrainAndCloseRequest())
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Handler:           s,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: the MJPEG and result streams are long-lived.
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof(" > server listening on: [%s]", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %s", err)
		return httpServer.Close()
	}
	log.Infoln("server stopped")
	return nil
}
