package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/repcoach/internal/store"
)

var workoutsCmd = &cobra.Command{
	Use:   "workouts",
	Short: "Inspect the workout log",
}

var workoutsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent workouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return withStore(func(s *store.Store) error {
			workouts, err := s.Workouts().Recent(days)
			if err != nil {
				return fmt.Errorf("query workouts: %w", err)
			}
			printWorkouts(cmd.OutOrStdout(), workouts)
			return nil
		})
	},
}

var workoutsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show workout totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		ex, _ := cmd.Flags().GetString("exercise")
		return withStore(func(s *store.Store) error {
			st, err := s.Workouts().Stats(ex, days)
			if err != nil {
				return fmt.Errorf("query stats: %w", err)
			}
			scope := ex
			if scope == "" {
				scope = "all exercises"
			}
			printStats(cmd.OutOrStdout(), fmt.Sprintf("Last %d days, %s", days, scope), st)
			return nil
		})
	},
}

var workoutsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show this week's totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			ws, err := s.Workouts().WeeklySummary()
			if err != nil {
				return fmt.Errorf("query weekly summary: %w", err)
			}
			printStats(cmd.OutOrStdout(), "This week", store.WorkoutStats{
				TotalWorkouts: ws.WorkoutsThisWeek,
				TotalReps:     ws.TotalRepsThisWeek,
				TotalDuration: ws.TotalDurationThisWeek,
				AvgFormScore:  ws.AvgFormScoreThisWeek,
			})
			return nil
		})
	},
}

var workoutsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the workout log as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		return withStore(func(s *store.Store) error {
			if out == "" || out == "-" {
				return s.Workouts().ExportCSV(cmd.OutOrStdout())
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := s.Workouts().ExportCSV(f); err != nil {
				f.Close()
				return fmt.Errorf("export: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "exported to %s\n", out)
			return nil
		})
	},
}

var workoutsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every logged workout",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear the workout log without --yes")
		}
		return withStore(func(s *store.Store) error {
			n, err := s.Workouts().Clear()
			if err != nil {
				return fmt.Errorf("clear workouts: %w", err)
			}
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "deleted %d workouts\n", n)
			return nil
		})
	},
}

func init() {
	workoutsRecentCmd.Flags().Int("days", 7, "Number of days to include")
	workoutsStatsCmd.Flags().Int("days", 30, "Number of days to include")
	workoutsStatsCmd.Flags().StringP("exercise", "e", "", "Limit to one exercise")
	workoutsExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	workoutsClearCmd.Flags().Bool("yes", false, "Confirm deletion")

	workoutsCmd.AddCommand(workoutsRecentCmd)
	workoutsCmd.AddCommand(workoutsStatsCmd)
	workoutsCmd.AddCommand(workoutsWeeklyCmd)
	workoutsCmd.AddCommand(workoutsExportCmd)
	workoutsCmd.AddCommand(workoutsClearCmd)
}

func withStore(fn func(s *store.Store) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printWorkouts(w io.Writer, workouts []*store.Workout) {
	if len(workouts) == 0 {
		fmt.Fprintln(w, "No workouts found.")
		return
	}

	header := color.New(color.Bold)
	header.Fprintf(w, "%-16s  %-18s  %5s  %8s  %6s  %8s\n",
		"When", "Exercise", "Reps", "Minutes", "Form", "Calories")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	for _, wo := range workouts {
		fmt.Fprintf(w, "%-16s  %-18s  %5d  %8.2f  %s  %8.1f\n",
			wo.Timestamp.Local().Format("2006-01-02 15:04"),
			wo.ExerciseType,
			wo.Reps,
			wo.DurationMinutes,
			scoreColor(int(wo.FormScore+0.5)).Sprintf("%6.1f", wo.FormScore),
			wo.CaloriesEstimate,
		)
	}
}

func printStats(w io.Writer, title string, st store.WorkoutStats) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, title)
	fmt.Fprintf(w, "  %-15s %d\n", "workouts", st.TotalWorkouts)
	fmt.Fprintf(w, "  %-15s %d\n", "reps", st.TotalReps)
	fmt.Fprintf(w, "  %-15s %.2f min\n", "duration", st.TotalDuration)
	fmt.Fprintf(w, "  %-15s %s\n", "avg form score", scoreColor(int(st.AvgFormScore+0.5)).Sprintf("%.1f", st.AvgFormScore))
	if st.BestFormScore > 0 {
		fmt.Fprintf(w, "  %-15s %.1f\n", "best form score", st.BestFormScore)
	}
	if st.TotalCalories > 0 {
		fmt.Fprintf(w, "  %-15s %.1f\n", "calories", st.TotalCalories)
	}
}
