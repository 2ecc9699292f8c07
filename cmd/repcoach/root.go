package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/config"
	"github.com/ayusman/repcoach/internal/logging"
	"github.com/ayusman/repcoach/internal/metrics"
	"github.com/ayusman/repcoach/internal/server"
	"github.com/ayusman/repcoach/internal/store"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "repcoach",
	Short:        "Camera-based exercise rep counter and form coach",
	Long:         "repcoach counts exercise repetitions from body pose, scores form and keeps a workout log.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Setup(logging.LoggerSetupParams{
			LogFileName:   cfg.LogsPath,
			LogToStdout:   cfg.LogToStdout,
			LogLevel:      cfg.LogLevel,
			LogFormatJSON: cfg.LogJSON,
		})
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Config section to use: development or production (overrides REPCOACH_ENV)")
	rootCmd.PersistentFlags().String("config", "", "Path to the TOML config file (overrides REPCOACH_CONFIG)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite workout log (overrides REPCOACH_DB and the config file)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trayCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(workoutsCmd)
	rootCmd.AddCommand(exercisesCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	path, _ := cmd.Flags().GetString("config")

	c, err := config.Load(env, path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		c.DBPath = db
	}
	return c, nil
}

func openStore() (*store.Store, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open workout log: %w", err)
	}
	log.Debugf("workout log: %s", cfg.DBPath)
	return s, nil
}

// services bundles everything the long-running commands share.
type services struct {
	store    *store.Store
	app      *app.App
	server   *server.Server
	metrics  *metrics.Manager
	gatherer prometheus.Gatherer
}

func newServices() (*services, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	rt := &services{store: s}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.metrics = metrics.NewManager("repcoach", "", reg)
		rt.gatherer = reg
	}

	rt.app = app.New(app.Config{
		Store:            s,
		Metrics:          rt.metrics,
		Profiles:         cfg.ExerciseProfiles(),
		PostureThreshold: cfg.PostureThreshold,
		DefaultExercise:  cfg.DefaultExercise,
		CameraID:         cfg.CameraID,
		VideoFile:        cfg.VideoFile,
		MotionThresh:     cfg.MotionThreshold,
		PluginDir:        cfg.PluginDir,
		PluginTimeout:    cfg.PluginTimeout(),
		MilestoneEvery:   cfg.MilestoneEvery,
		FormWarningBelow: cfg.FormWarningBelow,
	})
	if err := rt.app.DiscoverPlugins(); err != nil {
		log.Warnf("discover plugins in %s: %s", cfg.PluginDir, err)
	} else {
		log.Infof("loaded %d plugins", len(rt.app.PluginManager().List()))
	}

	webDir := findWebDir()
	if webDir != "" {
		log.Infof("serving static files from: %s", webDir)
	}

	rt.server = server.New(server.Config{
		StaticDir: webDir,
		App:       rt.app,
		Metrics:   rt.metrics,
		Gatherer:  rt.gatherer,
	})
	return rt, nil
}

// startPipeline opens the camera. A missing camera is not fatal because
// frames can still be pushed over HTTP.
func (rt *services) startPipeline() {
	if err := rt.app.Start(); err != nil {
		log.Warnf("camera unavailable (%s); POST joint sets to /api/frames instead", err)
	}
}

func (rt *services) Close() error {
	return multierr.Combine(rt.app.Close(), rt.store.Close())
}

// findWebDir searches for the dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.repcoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".repcoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
