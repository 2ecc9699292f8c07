package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/repcoach/internal/tray"
)

const trayRefresh = 500 * time.Millisecond

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run repcoach from the system tray",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newServices()
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.Errorf("shutdown: %s", err)
			}
		}()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		serveErr := make(chan error, 1)
		go func() {
			err := rt.server.Serve(ctx, cfg.Addr())
			if err != nil {
				log.Errorf("http server: %s", err)
			}
			serveErr <- err
		}()
		rt.startPipeline()

		t := tray.New()
		t.OnToggle(rt.app.SetEnabled)
		t.OnWorkout(func(start bool) error {
			if start {
				return rt.app.StartWorkout()
			}
			w, err := rt.app.StopWorkout()
			if err != nil {
				return err
			}
			log.Infof("logged %d %s reps", w.Reps, w.ExerciseType)
			return nil
		})
		t.OnReset(rt.app.Reset)
		t.OnDashboard(func() {
			if err := openBrowser(dashboardURL()); err != nil {
				log.Warnf("open dashboard: %s", err)
			}
		})
		t.OnQuit(cancel)

		go func() {
			ticker := time.NewTicker(trayRefresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					stats := rt.app.Stats()
					t.SetStatus(tray.Status{
						Exercise: stats.Exercise,
						Reps:     stats.Reps,
						Phase:    string(stats.Phase),
						Workout:  rt.app.WorkoutStatus().Active,
					})
				}
			}
		}()

		// Blocks until Quit is chosen.
		t.Run()
		cancel()

		return <-serveErr
	},
}

func dashboardURL() string {
	return fmt.Sprintf("http://localhost:%d/", cfg.Port)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
