package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/repcoach/internal/exercise"
)

var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "List supported exercises and their thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		printExercises(cmd.OutOrStdout(), exercise.NewDefaultRegistry(cfg.ExerciseProfiles()))
		return nil
	},
}

func printExercises(w io.Writer, registry *exercise.Registry) {
	profiles := registry.Profiles()

	color.New(color.Bold).Fprintf(w, "%-18s  %-16s  %6s  %6s  %8s  %8s\n",
		"Exercise", "Counting", "Down", "Up", "Cooldown", "Calories")
	fmt.Fprintln(w, strings.Repeat("─", 74))

	for _, name := range profiles.Names() {
		p, _ := profiles.Get(name)
		kind := registry.Lookup(name).Kind()

		label := string(kind)
		if kind == exercise.KindUnsupported {
			label = color.New(color.FgHiBlack).Sprintf("%-16s", label)
		} else {
			label = fmt.Sprintf("%-16s", label)
		}
		fmt.Fprintf(w, "%-18s  %s  %6.0f  %6.0f  %7.1fs  %8.1f\n",
			p.Name, label, p.DownThreshold, p.UpThreshold, p.RepCooldown.Seconds(), p.CaloriesPerRep)
	}
}
