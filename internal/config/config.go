package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/setlog/internal/stats"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Stats     StatsConfig     `yaml:"stats"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// StatsConfig makes the week-boundary rule explicit: which day starts the
// week and which timezone session start times are bucketed in.
type StatsConfig struct {
	WeekStart string `yaml:"week_start"`
	Timezone  string `yaml:"timezone"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekPolicy resolves the configured bucketing rule. An empty week_start
// means Monday; an empty timezone means the process-local zone.
func (s StatsConfig) WeekPolicy() (stats.WeekPolicy, error) {
	policy := stats.DefaultWeekPolicy()

	if s.WeekStart != "" {
		day, ok := weekdays[strings.ToLower(s.WeekStart)]
		if !ok {
			return stats.WeekPolicy{}, fmt.Errorf("unknown week_start %q", s.WeekStart)
		}
		policy.StartDay = day
	}
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return stats.WeekPolicy{}, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
		}
		policy.Location = loc
	}
	return policy, nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix SETLOG_ and underscore-separated
// paths:
//
//	SETLOG_SERVER_HOST, SETLOG_SERVER_PORT, SETLOG_DB_PATH,
//	SETLOG_AUTH_API_KEY, SETLOG_TS_HOSTNAME, SETLOG_TS_STATE_DIR,
//	SETLOG_STATS_WEEK_START, SETLOG_STATS_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SETLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SETLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SETLOG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SETLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("SETLOG_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("SETLOG_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("SETLOG_STATS_WEEK_START"); v != "" {
		cfg.Stats.WeekStart = v
	}
	if v := os.Getenv("SETLOG_STATS_TIMEZONE"); v != "" {
		cfg.Stats.Timezone = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if _, err := c.Stats.WeekPolicy(); err != nil {
		return err
	}
	return nil
}
