package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/phase"
)

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases <overall-progress>",
		Short: "Show the phase timeline for an overall progress value",
		Long: `Derives the five construction phases (Planning, Excavation, Foundation,
Framing, Finishing) from an overall progress percentage. Values outside
0-100 are clamped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(cmd, args[0])
		},
	}
}

func runPhases(cmd *cobra.Command, arg string) error {
	overall, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(arg), "%"))
	if err != nil {
		return fmt.Errorf("phases: overall progress must be an integer, got %q", arg)
	}
	out := cmd.OutOrStdout()
	phases := phase.Derive(overall)
	printPhases(out, phases)

	cur := phase.Current(phases)
	fmt.Fprintf(out, "\nCurrent phase: %s (%d%%) at overall %d%%\n", cur.Label, cur.Progress, phase.Clamp(overall))
	return nil
}

// printPhases renders a phase timeline with a progress bar per phase.
func printPhases(out io.Writer, phases []phase.Phase) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range phases {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%3d%%\n", p.ID, p.Label, p.Status, progressBar(p.Progress, 20), p.Progress)
	}
	w.Flush()
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
