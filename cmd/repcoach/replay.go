package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/exercise"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/store"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording.jsonl>",
	Short: "Count reps in a recorded joint stream",
	Long: "Feeds a JSON-lines recording of joint sets through the rep counter on the recording's own\n" +
		"timeline and prints every frame plus a workout summary.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("exercise")
		quiet, _ := cmd.Flags().GetBool("quiet")
		save, _ := cmd.Flags().GetBool("save")
		notify, _ := cmd.Flags().GetBool("notify")

		rec, err := pose.LoadRecording(args[0])
		if err != nil {
			return err
		}

		opts := replayOptions{
			Exercise:         name,
			Profiles:         cfg.ExerciseProfiles(),
			PostureThreshold: cfg.PostureThreshold,
			MilestoneEvery:   cfg.MilestoneEvery,
			FormWarningBelow: cfg.FormWarningBelow,
			Quiet:            quiet,
		}
		if opts.Exercise == "" {
			opts.Exercise = cfg.DefaultExercise
		}
		if notify {
			opts.PluginDir = cfg.PluginDir
		}
		if save {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			opts.Store = s
		}

		_, err = replay(cmd.OutOrStdout(), rec, opts)
		return err
	},
}

func init() {
	replayCmd.Flags().StringP("exercise", "e", "", "Exercise performed in the recording (default from config)")
	replayCmd.Flags().BoolP("quiet", "q", false, "Only print reps and the summary")
	replayCmd.Flags().Bool("save", false, "Log the replayed workout")
	replayCmd.Flags().Bool("notify", false, "Deliver plugin notifications")
}

type replayOptions struct {
	Exercise         string
	Profiles         exercise.Profiles
	PostureThreshold float64
	MilestoneEvery   int
	FormWarningBelow int
	// Store receives the workout when set.
	Store     *store.Store
	PluginDir string
	// Start is the wall time of the first frame. Defaults to now.
	Start time.Time
	Quiet bool
}

// replay runs rec through a fresh session as one workout and returns the
// workout summary.
func replay(w io.Writer, rec *pose.Recording, opts replayOptions) (*store.Workout, error) {
	if len(rec.Frames) == 0 {
		return nil, fmt.Errorf("recording has no frames")
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	clock := exercise.NewManualClock(opts.Start)
	a := app.New(app.Config{
		Store:            opts.Store,
		Profiles:         opts.Profiles,
		PostureThreshold: opts.PostureThreshold,
		DefaultExercise:  opts.Exercise,
		Clock:            clock,
		Camera:           capture.NewMockCamera(nil, false),
		Detector:         pose.NewMockDetector(),
		PluginDir:        opts.PluginDir,
		MilestoneEvery:   opts.MilestoneEvery,
		FormWarningBelow: opts.FormWarningBelow,
	})
	defer a.Close()

	if opts.PluginDir != "" {
		if err := a.DiscoverPlugins(); err != nil {
			log.Warnf("discover plugins: %s", err)
		}
	}
	if err := a.SelectExercise(opts.Exercise); err != nil {
		return nil, err
	}

	kind := a.Registry().Lookup(a.Exercise()).Kind()
	if kind == exercise.KindUnsupported {
		color.New(color.FgRed).Fprintf(w, "%s has no counting rule; reps stay at 0\n", a.Exercise())
	}

	if err := a.StartWorkout(); err != nil {
		return nil, err
	}

	reps := 0
	for _, frame := range rec.Frames {
		clock.Set(opts.Start.Add(frame.Offset()))
		u := a.ProcessJoints(frame.Joints)

		switch {
		case u.Result.Reps > reps && kind == exercise.KindHoldTimer:
			color.New(color.FgGreen, color.Bold).Fprintf(w, "%8s  held %ds\n", formatOffset(frame.Offset()), u.Result.Reps)
		case u.Result.Reps > reps:
			color.New(color.FgGreen, color.Bold).Fprintf(w, "%8s  rep %d\n", formatOffset(frame.Offset()), u.Result.Reps)
		case !opts.Quiet:
			printFrame(w, frame.Offset(), u.Result)
		}
		reps = u.Result.Reps
	}

	workout, err := a.StopWorkout()
	if err != nil {
		return nil, err
	}
	printSummary(w, workout, opts.Store != nil)
	return workout, nil
}

func printFrame(w io.Writer, offset time.Duration, r exercise.FrameResult) {
	phase := phaseColor(r.Phase).Sprintf("%-15s", r.Phase)
	if r.Phase == exercise.PhaseNoDetection || r.Phase == exercise.PhaseNotImplemented {
		fmt.Fprintf(w, "%8s  %s\n", formatOffset(offset), phase)
		return
	}

	score := scoreColor(r.Form.Score).Sprintf("%3d", r.Form.Score)
	fmt.Fprintf(w, "%8s  %s  %6.1f°  reps %-3d  form %s", formatOffset(offset), phase, r.Angle, r.Reps, score)
	if len(r.Form.Issues) > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %s", strings.Join(r.Form.Issues, "; "))
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, wo *store.Workout, saved bool) {
	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintln(w, "Workout summary")
	fmt.Fprintf(w, "  %-11s %s\n", "exercise", wo.ExerciseType)
	fmt.Fprintf(w, "  %-11s %d\n", "reps", wo.Reps)
	fmt.Fprintf(w, "  %-11s %.2f min\n", "duration", wo.DurationMinutes)
	fmt.Fprintf(w, "  %-11s %s\n", "form score", scoreColor(int(wo.FormScore+0.5)).Sprintf("%.1f", wo.FormScore))
	fmt.Fprintf(w, "  %-11s %.1f\n", "calories", wo.CaloriesEstimate)
	if saved {
		fmt.Fprintf(w, "  %-11s %s\n", "saved as", wo.ID)
	}
}

func phaseColor(p exercise.Phase) *color.Color {
	switch p {
	case exercise.PhaseUp, exercise.PhaseHold:
		return color.New(color.FgGreen)
	case exercise.PhaseDown:
		return color.New(color.FgYellow)
	case exercise.PhaseNotImplemented:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen)
	case score >= 60:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
