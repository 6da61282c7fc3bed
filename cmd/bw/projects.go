package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/project"
	"github.com/zulandar/buildwatch/internal/source"
	"gorm.io/gorm"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Browse construction projects",
	}

	cmd.AddCommand(newProjectsListCmd())
	cmd.AddCommand(newProjectsShowCmd())
	cmd.AddCommand(newProjectsSearchCmd())
	return cmd
}

// storedOrDemo returns the stored projects, or the demo set when none are
// stored yet.
func storedOrDemo(gormDB *gorm.DB) ([]project.ConstructionProject, string, error) {
	projects, err := project.List(gormDB)
	if err != nil {
		return nil, "", err
	}
	if len(projects) == 0 {
		return source.DemoProjects(), source.DemoName, nil
	}
	return projects, "database", nil
}

func newProjectsListCmd() *cobra.Command {
	var (
		configPath string
		filter     string
		lat, lng   float64
		radius     float64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  "Lists projects with their current phase. Filters: all, near-me, new-build, renovation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsList(cmd, configPath, filter, project.FilterOpts{
				Latitude:  lat,
				Longitude: lng,
				RadiusKM:  radius,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "filter: all, near-me, new-build, renovation")
	cmd.Flags().Float64Var(&lat, "lat", 0, "near-me latitude (default Toronto City Hall)")
	cmd.Flags().Float64Var(&lng, "lng", 0, "near-me longitude (default Toronto City Hall)")
	cmd.Flags().Float64Var(&radius, "radius", project.DefaultRadiusKM, "near-me radius in km")
	return cmd
}

func runProjectsList(cmd *cobra.Command, configPath, filter string, opts project.FilterOpts) error {
	f, err := project.ParseFilter(filter)
	if err != nil {
		return err
	}
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	projects, from, err := storedOrDemo(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	projects = project.Filter(projects, f, opts)
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}
	printProjectTable(out, projects)
	fmt.Fprintf(out, "\n%d projects (%s)\n", len(projects), from)
	return nil
}

func printProjectTable(out io.Writer, projects []project.ConstructionProject) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tPROGRESS\tPHASE")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s %d%%\n",
			p.ID, truncate(p.Name, 40), p.ProjectType, p.Status, p.OverallProgress,
			p.CurrentPhase.Label, p.CurrentPhase.Progress)
	}
	w.Flush()
}

func newProjectsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show project details",
		Long:  "Displays a project's permit details, phase timeline, photos and community updates.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	return cmd
}

func runProjectsShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	projects, _, err := storedOrDemo(gormDB)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if p.ID == id {
			printProject(cmd.OutOrStdout(), p)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", project.ErrNotFound, id)
}

func printProject(out io.Writer, p project.ConstructionProject) {
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(out, "  Address:     %s\n", p.Address)
	fmt.Fprintf(out, "  Type:        %s\n", p.ProjectType)
	fmt.Fprintf(out, "  Status:      %s\n", p.Status)
	fmt.Fprintf(out, "  Permit:      %s (%s)\n", p.PermitNumber, p.PermitDate)
	fmt.Fprintf(out, "  Value:       %s\n", formatCurrency(p.Value))
	if p.Contractor != "" {
		fmt.Fprintf(out, "  Contractor:  %s\n", p.Contractor)
	}
	if p.EstimatedCompletion != "" {
		fmt.Fprintf(out, "  Completion:  %s\n", p.EstimatedCompletion)
	}
	fmt.Fprintf(out, "  Followers:   %d\n", p.Followers)
	if p.Description != "" {
		fmt.Fprintf(out, "\n  %s\n", p.Description)
	}

	fmt.Fprintf(out, "\nPhases (overall %d%%):\n", p.OverallProgress)
	printPhases(out, p.Phases)

	if len(p.Images) > 0 {
		fmt.Fprintf(out, "\nPhotos (%d):\n", len(p.Images))
		for _, img := range p.Images {
			fmt.Fprintf(out, "  [%s] %s by %s\n", img.Type, orDash(img.Caption), img.UploadedBy)
		}
	}
	if len(p.Updates) > 0 {
		fmt.Fprintf(out, "\nUpdates (%d):\n", len(p.Updates))
		for _, u := range p.Updates {
			fmt.Fprintf(out, "  %s  %s: %s (%d likes)\n",
				u.Timestamp.Format("2006-01-02 15:04"), u.Username, u.Text, u.Likes)
		}
	}
}

func newProjectsSearchCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search projects by name, address, type or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsSearch(cmd, configPath, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", project.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func runProjectsSearch(cmd *cobra.Command, configPath, query string, limit int) error {
	out := cmd.OutOrStdout()
	if len([]rune(strings.TrimSpace(query))) < project.MinQueryLength {
		return fmt.Errorf("search: query must be at least %d characters", project.MinQueryLength)
	}
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	projects, _, err := storedOrDemo(gormDB)
	if err != nil {
		return err
	}

	results := project.Search(projects, query, limit)
	if len(results) == 0 {
		fmt.Fprintf(out, "No projects match %q.\n", query)
		return nil
	}
	printProjectTable(out, results)
	return nil
}
