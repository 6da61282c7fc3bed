// Package db opens the BuildWatch database and manages its schema.
package db

import (
	"fmt"
	"net"
	"strconv"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/zulandar/buildwatch/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN. An empty database selects no schema, for
// CREATE/DROP DATABASE.
func DSN(user, password, host string, port int, database string) string {
	c := mysqldriver.NewConfig()
	c.User = user
	c.Passwd = password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = database
	c.ParseTime = true
	return c.FormatDSN()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
}

// Connect opens the database described by cfg.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.Path, err)
		}
		return db, nil
	case config.DriverMySQL:
		dsn := DSN(cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
		db, err := gorm.Open(mysql.Open(dsn), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// ConnectAdmin opens a MySQL connection without selecting a database, used
// for CREATE DATABASE operations.
func ConnectAdmin(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver != config.DriverMySQL {
		return nil, fmt.Errorf("db: admin connection requires mysql, got %q", cfg.Driver)
	}
	dsn := DSN(cfg.User, cfg.Password, cfg.Host, cfg.Port, "")
	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}
