// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"uptime-inspector/docstore"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode"`
}

type ProbeConfig struct {
	TimeoutMs            int `yaml:"timeout_ms"`
	HeaderCheckTimeoutMs int `yaml:"header_check_timeout_ms"`
	Workers              int `yaml:"workers"`
}

type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	// Recipients get the report after every scheduled sweep. Empty disables mail.
	Recipients []string `yaml:"recipients"`
}

type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level   string   `yaml:"level"`
	Console *bool    `yaml:"console"`
	Files   []string `yaml:"files"`
	Disable bool     `yaml:"disable"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     docstore.Config `yaml:"store"`
	Probe     ProbeConfig     `yaml:"probe"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Log       LogConfig       `yaml:"log"`
	// Timezone names the zone stored timestamps and calendar windows use.
	// Empty means the process local zone.
	Timezone string `yaml:"timezone"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080", Mode: "release"},
		Store:     docstore.Config{Driver: docstore.DriverMemory},
		Probe:     ProbeConfig{TimeoutMs: 10000, HeaderCheckTimeoutMs: 5000, Workers: 8},
		Scheduler: SchedulerConfig{Enabled: true, IntervalMinutes: 10},
		SMTP:      SMTPConfig{Server: "smtp.gmail.com", Port: 587, From: "noreply@example.com"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Server.Addr = getenv("UPTIME_ADDR", c.Server.Addr)
	c.Server.Mode = getenv("UPTIME_GIN_MODE", c.Server.Mode)
	c.Store.Driver = getenv("UPTIME_STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getenv("UPTIME_STORE_DSN", c.Store.DSN)
	c.Probe.TimeoutMs = getenvInt("UPTIME_PROBE_TIMEOUT_MS", c.Probe.TimeoutMs)
	c.Probe.HeaderCheckTimeoutMs = getenvInt("UPTIME_HEADER_CHECK_TIMEOUT_MS", c.Probe.HeaderCheckTimeoutMs)
	c.Probe.Workers = getenvInt("UPTIME_PROBE_WORKERS", c.Probe.Workers)
	c.Scheduler.Enabled = getenvBool("UPTIME_SCHEDULER_ENABLED", c.Scheduler.Enabled)
	c.Scheduler.IntervalMinutes = getenvInt("UPTIME_SCHEDULER_INTERVAL_MINUTES", c.Scheduler.IntervalMinutes)
	c.Scheduler.Recipients = getenvList("UPTIME_REPORT_RECIPIENTS", c.Scheduler.Recipients)
	c.Log.Level = getenv("UPTIME_LOG_LEVEL", c.Log.Level)
	c.Log.Files = getenvList("UPTIME_LOG_FILES", c.Log.Files)
	c.Timezone = getenv("UPTIME_TIMEZONE", c.Timezone)

	c.SMTP.Server = getenv("SMTP_SERVER", c.SMTP.Server)
	c.SMTP.Port = getenvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = getenv("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = getenv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = getenv("EMAIL_FROM", c.SMTP.From)
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	switch c.Store.Driver {
	case docstore.DriverMemory, docstore.DriverSQLite:
	case docstore.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver))
	}
	if c.Probe.TimeoutMs <= 0 {
		errs = append(errs, errors.New("probe.timeout_ms must be positive"))
	}
	if c.Probe.HeaderCheckTimeoutMs <= 0 {
		errs = append(errs, errors.New("probe.header_check_timeout_ms must be positive"))
	}
	if c.Probe.Workers <= 0 {
		errs = append(errs, errors.New("probe.workers must be positive"))
	}
	if c.Scheduler.IntervalMinutes <= 0 {
		errs = append(errs, errors.New("scheduler.interval_minutes must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMs) * time.Millisecond
}

func (c Config) HeaderCheckTimeout() time.Duration {
	return time.Duration(c.Probe.HeaderCheckTimeoutMs) * time.Millisecond
}

func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}

// Location resolves Timezone, defaulting to time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return d
}

// getenvList splits a comma separated value, dropping empty items.
func getenvList(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
