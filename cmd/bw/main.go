package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/phase"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// defaultConfigPath is used by every command's --config flag.
const defaultConfigPath = "buildwatch.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bw",
		Short: "BuildWatch: construction permit tracker",
		Long:  "BuildWatch serves construction projects with derived phase timelines, and announces phase milestones to followers.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newPhasesCmd())
	cmd.AddCommand(newRefreshCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and phase model information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
				return
			}
			fmt.Fprintf(out, "bw %s (commit: %s, built: %s, %s)\n", Version, Commit, Date, runtime.Version())
			fmt.Fprintf(out, "phase model: %s\n", phaseModel())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}

// phaseModel renders the phase thresholds, e.g. "Planning 0% > Excavation 20%".
func phaseModel() string {
	parts := make([]string, len(phase.Definitions))
	for i, d := range phase.Definitions {
		parts[i] = fmt.Sprintf("%s %d%%", d.Label, d.Threshold)
	}
	return strings.Join(parts, " > ")
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
