package db

import (
	"fmt"

	"github.com/zulandar/buildwatch/internal/models"
	"github.com/zulandar/buildwatch/internal/project"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.ProjectImage{},
		&models.ProjectUpdate{},
		&models.ClientState{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedProjects upserts an initial batch of projects tagged with source.
func SeedProjects(db *gorm.DB, projects []project.ConstructionProject, source string) error {
	if err := project.Upsert(db, projects, source); err != nil {
		return fmt.Errorf("db: seed projects from %s: %w", source, err)
	}
	return nil
}
