package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/config"
	"github.com/zulandar/buildwatch/internal/db"
	"github.com/zulandar/buildwatch/internal/source"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var (
		configPath string
		noSeed     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the BuildWatch database",
		Long:  "Creates the database (MySQL only), migrates all tables, and seeds the demo projects.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath, !noSeed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "skip seeding the demo projects")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string, seed bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	return initDatabase(cmd.OutOrStdout(), cfg, seed)
}

// initDatabase creates (MySQL), migrates and optionally seeds the database.
func initDatabase(out io.Writer, cfg *config.Config, seed bool) error {
	if cfg.Database.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables in %s\n", len(db.AllModels()), describeDB(cfg.Database))

	if seed {
		projects := source.DemoProjects()
		if err := db.SeedProjects(gormDB, projects, source.DemoName); err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded %d demo projects\n", len(projects))
	}

	fmt.Fprintln(out, "\nBuildWatch database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
		noSeed     bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the BuildWatch database",
		Long: `Drops the BuildWatch database and re-creates it from config.

For sqlite the database file is removed; for MySQL the database is dropped.
Followers, favorites, notifications and community updates are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes, !noSeed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "skip seeding the demo projects")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm, seed bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	target := describeDB(cfg.Database)

	if !skipConfirm && !confirmReset(cmd, target) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	switch cfg.Database.Driver {
	case config.DriverMySQL:
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
	default:
		if err := os.Remove(cfg.Database.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", cfg.Database.Path, err)
		}
	}
	fmt.Fprintf(out, "Dropped %s\n", target)

	return initDatabase(out, cfg, seed)
}

// confirmReset prompts the user to type "yes" to confirm a destructive reset.
func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %s.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
