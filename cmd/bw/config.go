package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/zulandar/buildwatch/internal/config"
	"github.com/zulandar/buildwatch/internal/db"
	"gorm.io/gorm"
)

// loadConfig reads the config file. A missing file at the default path
// yields the defaults so demo mode works out of the box.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connectFromConfig loads config and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}
	return cfg, gormDB, nil
}

// describeDB names the database for progress output.
func describeDB(d config.DatabaseConfig) string {
	if d.Driver == config.DriverMySQL {
		return fmt.Sprintf("mysql %s:%d/%s", d.Host, d.Port, d.Name)
	}
	return "sqlite " + d.Path
}
