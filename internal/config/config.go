// Package config provides YAML-based configuration loading for BuildWatch.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Source modes.
const (
	ModeDemo     = "demo"
	ModeRandom   = "random"
	ModeOpenData = "opendata"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config is the top-level BuildWatch configuration, loaded from buildwatch.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Source    SourceConfig    `yaml:"source"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Telegraph TelegraphConfig `yaml:"telegraph"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client IP; 0 disables
	RateBurst int     `yaml:"rate_burst"`

	// TrustedProxies are CIDRs or IPs allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`

	// DemoNotifications seeds new clients' inboxes with demo entries.
	DemoNotifications bool `yaml:"demo_notifications"`
}

// DatabaseConfig selects and locates the backing database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SourceConfig describes where project records come from.
type SourceConfig struct {
	Mode              string        `yaml:"mode"`
	URL               string        `yaml:"url"`
	ResourceID        string        `yaml:"resource_id"`
	Limit             int           `yaml:"limit"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Seed              int64         `yaml:"seed"`
	Count             int           `yaml:"count"` // records generated in random mode
	Center            CenterConfig  `yaml:"center"`
}

// CenterConfig is the map centre used for synthetic coordinates.
type CenterConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// RefreshConfig controls the background refresh.
type RefreshConfig struct {
	Schedule        string `yaml:"schedule"`
	NotifyFollowers *bool  `yaml:"notify_followers"`
}

// TelegraphConfig holds chat destinations for milestone broadcasts.
type TelegraphConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack adapter.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig configures the Discord adapter.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether Slack is configured.
func (s SlackConfig) Enabled() bool { return s.BotToken != "" }

// Enabled reports whether Discord is configured.
func (d DiscordConfig) Enabled() bool { return d.BotToken != "" }

// ShouldNotifyFollowers reports whether refresh adds milestone notifications
// to followers' inboxes. Defaults to true.
func (r RefreshConfig) ShouldNotifyFollowers() bool {
	return r.NotifyFollowers == nil || *r.NotifyFollowers
}

// Default CKAN endpoint and Toronto "Building Permits - Active Permits"
// datastore resource.
const (
	DefaultOpenDataURL = "https://ckan0.cf.opendata.inter.prod-toronto.ca/api/3/action/datastore_search"
	DefaultResourceID  = "6d0229af-bc54-46de-9c2b-26759b01dd05"
)

// cronParser accepts standard 5-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied:
// sqlite storage and demo records.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		c.Server.RateBurst = int(c.Server.RateLimit * 2)
		if c.Server.RateBurst < 1 {
			c.Server.RateBurst = 1
		}
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			c.Database.Path = "buildwatch.db"
		}
	case DriverMySQL:
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "buildwatch"
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}

	if c.Source.Mode == "" {
		c.Source.Mode = ModeDemo
	}
	if c.Source.Mode == ModeOpenData {
		if c.Source.URL == "" {
			c.Source.URL = DefaultOpenDataURL
		}
		if c.Source.ResourceID == "" {
			c.Source.ResourceID = DefaultResourceID
		}
	}
	if c.Source.Limit == 0 {
		c.Source.Limit = 100
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 15 * time.Second
	}
	if c.Source.RequestsPerSecond == 0 {
		c.Source.RequestsPerSecond = 1
	}
	if c.Source.Count == 0 {
		c.Source.Count = 25
	}
	if c.Source.Center.Latitude == 0 && c.Source.Center.Longitude == 0 {
		c.Source.Center = CenterConfig{Latitude: 43.6532, Longitude: -79.3832}
	}

	if c.Refresh.Schedule == "" {
		c.Refresh.Schedule = "*/30 * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of sqlite, mysql", c.Database.Driver))
	}
	switch c.Source.Mode {
	case ModeDemo, ModeRandom, ModeOpenData:
	default:
		errs = append(errs, fmt.Sprintf("source.mode %q is not one of demo, random, opendata", c.Source.Mode))
	}
	if c.Source.Limit < 0 {
		errs = append(errs, "source.limit must not be negative")
	}
	if c.Source.Count < 0 {
		errs = append(errs, "source.count must not be negative")
	}
	if _, err := cronParser.Parse(c.Refresh.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("refresh.schedule %q: %v", c.Refresh.Schedule, err))
	}
	if c.Telegraph.Slack.Enabled() && c.Telegraph.Slack.ChannelID == "" {
		errs = append(errs, "telegraph.slack.channel_id is required when bot_token is set")
	}
	if c.Telegraph.Discord.Enabled() && c.Telegraph.Discord.ChannelID == "" {
		errs = append(errs, "telegraph.discord.channel_id is required when bot_token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
