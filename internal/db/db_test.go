package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/buildwatch/internal/config"
	"github.com/zulandar/buildwatch/internal/models"
	"github.com/zulandar/buildwatch/internal/project"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "buildwatch",
			want:     "root@tcp(127.0.0.1:3306)/buildwatch?parseTime=true",
		},
		{
			name:     "with password",
			user:     "bw",
			password: "secret",
			host:     "10.0.0.5",
			port:     3307,
			database: "permits",
			want:     "bw:secret@tcp(10.0.0.5:3307)/permits?parseTime=true",
		},
		{
			name: "admin no database",
			user: "root",
			host: "db.internal",
			port: 3306,
			want: "root@tcp(db.internal:3306)/?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.password, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bw.db")
	gormDB, err := Connect(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("err = %v", err)
	}
}

func TestConnectAdmin_RequiresMySQL(t *testing.T) {
	_, err := ConnectAdmin(config.DatabaseConfig{Driver: config.DriverSQLite})
	if err == nil || !strings.Contains(err.Error(), "requires mysql") {
		t.Errorf("err = %v", err)
	}
}

func TestAllModels(t *testing.T) {
	if got := len(AllModels()); got != 4 {
		t.Errorf("AllModels() = %d models, want 4", got)
	}
}

func TestSeedProjects(t *testing.T) {
	gormDB, err := Connect(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	batch := []project.ConstructionProject{{ID: "1", Name: "A", OverallProgress: 10}, {ID: "2", Name: "B"}}
	if err := SeedProjects(gormDB, batch, "demo"); err != nil {
		t.Fatalf("SeedProjects: %v", err)
	}
	// Seeding twice is an upsert, not a duplicate.
	if err := SeedProjects(gormDB, batch, "demo"); err != nil {
		t.Fatalf("SeedProjects again: %v", err)
	}

	var count int64
	gormDB.Model(&models.Project{}).Count(&count)
	if count != 2 {
		t.Errorf("projects = %d, want 2", count)
	}
	var row models.Project
	gormDB.Where("id = ?", "1").First(&row)
	if row.Source != "demo" {
		t.Errorf("source = %q, want demo", row.Source)
	}
}
