// Package config holds daemon configuration: defaults, optional YAML
// file, and validation. Flags layer on top in cmd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"playtimed/internal/domain"
)

// Store drivers.
const (
	DriverFile      = "file"
	DriverSQLCipher = "sqlcipher"
)

// StoreConfig selects and locates the ledger store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "file" or "sqlcipher"
	Path   string `yaml:"path"`   // empty means the per-user state dir default
}

// Config holds all daemon configuration.
type Config struct {
	// User owns the graphical session being watched (mandatory).
	User string `yaml:"user"`

	// CommandPattern and TitlePattern define the managed set; at least
	// one is required, a match on either is sufficient.
	CommandPattern string `yaml:"command_pattern"`
	TitlePattern   string `yaml:"title_pattern"`

	LimitSeconds      int64 `yaml:"limit_seconds"`
	WarnBeforeSeconds int64 `yaml:"warn_before_seconds"`
	IntervalSeconds   int   `yaml:"interval_seconds"`

	// Allowed time-of-day window [start, end), "HH:MM".
	WindowStart string `yaml:"window_start"`
	WindowEnd   string `yaml:"window_end"`

	// Backend selects the window enumeration tool.
	Backend string `yaml:"backend"`

	// AccrueAll accounts every matched window per tick instead of only
	// the first match.
	AccrueAll bool `yaml:"accrue_all"`

	CommandTimeoutSeconds int    `yaml:"command_timeout_seconds"`
	LogFile               string `yaml:"log_file"`

	Store StoreConfig `yaml:"store"`

	windowStart domain.MinuteOfDay
	windowEnd   domain.MinuteOfDay
}

// Default returns a Config with the stock values.
func Default() *Config {
	return &Config{
		LimitSeconds:          7200, // 2h
		WarnBeforeSeconds:     900,  // 15min
		IntervalSeconds:       10,
		WindowStart:           "12:00",
		WindowEnd:             "21:00",
		Backend:               "kdotool",
		CommandTimeoutSeconds: 5,
		Store:                 StoreConfig{Driver: DriverFile},
	}
}

// LoadFile merges a YAML config file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and caches parsed fields.
// A validation failure is fatal before the loop starts.
func (c *Config) Validate() error {
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.CommandPattern == "" && c.TitlePattern == "" {
		return fmt.Errorf("at least one of command_pattern or title_pattern is required")
	}
	if c.LimitSeconds <= 0 {
		return fmt.Errorf("limit_seconds must be positive, got %d", c.LimitSeconds)
	}
	if c.WarnBeforeSeconds < 0 || c.WarnBeforeSeconds >= c.LimitSeconds {
		return fmt.Errorf("warn_before_seconds must be in [0, limit), got %d", c.WarnBeforeSeconds)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive, got %d", c.IntervalSeconds)
	}

	var err error
	if c.windowStart, err = domain.ParseMinuteOfDay(c.WindowStart); err != nil {
		return fmt.Errorf("window_start: %w", err)
	}
	if c.windowEnd, err = domain.ParseMinuteOfDay(c.WindowEnd); err != nil {
		return fmt.Errorf("window_end: %w", err)
	}
	if c.windowStart >= c.windowEnd {
		return fmt.Errorf("window_start %s must be before window_end %s", c.WindowStart, c.WindowEnd)
	}

	switch c.Backend {
	case "kdotool", "xdotool", "niri":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Store.Driver {
	case DriverFile, DriverSQLCipher:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	return nil
}

// Interval returns the polling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// CommandTimeout bounds each external session call.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// Window returns the parsed allowed window. Valid after Validate.
func (c *Config) Window() (start, end domain.MinuteOfDay) {
	return c.windowStart, c.windowEnd
}

// StateDir returns the directory holding ledger, key and run state.
func (c *Config) StateDir() string {
	if c.Store.Path != "" {
		return filepath.Dir(expandHome(c.Store.Path))
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "playtimed")
}

// StorePath returns the ledger store location, defaulting into the
// per-user state directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	name := "ledger"
	if c.Store.Driver == DriverSQLCipher {
		name = "ledger.db"
	}
	return filepath.Join(c.StateDir(), name)
}

// RunStatePath returns the daemon run-state file location.
func (c *Config) RunStatePath() string {
	return filepath.Join(c.StateDir(), "run.json")
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
