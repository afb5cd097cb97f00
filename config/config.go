// Package config loads the daemon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"gopkg.in/yaml.v3"
)

// Probe modes.
const (
	ModeAuto = "auto" // native ICMP, system ping if the sockets cannot be opened
	ModeICMP = "icmp"
	ModeExec = "exec"
)

// Config is the daemon configuration.
type Config struct {
	Database    string   `yaml:"database"`
	HistorySize int      `yaml:"history_size"`
	Listen      string   `yaml:"listen"`
	Probe       Probe    `yaml:"probe"`
	Log         Log      `yaml:"log"`
	Targets     []Target `yaml:"targets"`
}

// Probe configures the probe executor.
type Probe struct {
	Mode        string        `yaml:"mode"`
	Privileged  bool          `yaml:"privileged"`
	Bind4       string        `yaml:"bind4"`
	Bind6       string        `yaml:"bind6"`
	Timeout     time.Duration `yaml:"timeout"`
	PayloadSize uint16        `yaml:"payload_size"`
	Command     string        `yaml:"command"`
	DNSCache    time.Duration `yaml:"dns_cache"`
}

// Log configures logging. Without a file, logs go to stderr.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Target is a seed target, used when the settings database has none.
type Target struct {
	Host    string `yaml:"host"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

// Default returns the configuration used without a configuration file.
func Default() Config {
	return Config{
		Database:    DefaultDatabase(),
		HistorySize: monitor.DefaultHistorySize,
		Probe: Probe{
			Mode:        ModeAuto,
			Bind4:       "0.0.0.0",
			Bind6:       "::",
			Timeout:     monitor.DefaultProbeTimeout,
			PayloadSize: 8,
			Command:     "ping",
			DNSCache:    monitor.DefaultResolveTTL,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultDatabase is the settings database in the user configuration
// directory.
func DefaultDatabase() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "pinger", "settings.db")
}

// Load reads the configuration from path. A missing file yields the
// defaults; unset values are filled in with them.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Database == "" {
		c.Database = def.Database
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.Probe.Mode == "" {
		c.Probe.Mode = def.Probe.Mode
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = def.Probe.Timeout
	}
	if c.Probe.Command == "" {
		c.Probe.Command = def.Probe.Command
	}
	if c.Probe.DNSCache <= 0 {
		c.Probe.DNSCache = def.Probe.DNSCache
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks the probe mode and the seed targets.
func (c Config) Validate() error {
	switch c.Probe.Mode {
	case ModeAuto, ModeICMP, ModeExec:
	default:
		return fmt.Errorf("probe mode must be one of %s, %s, %s: got %q", ModeAuto, ModeICMP, ModeExec, c.Probe.Mode)
	}
	if c.Probe.Bind4 == "" && c.Probe.Bind6 == "" && c.Probe.Mode == ModeICMP {
		return errors.New("icmp probe mode needs bind4 or bind6")
	}
	for i, t := range c.Targets {
		if t.Host == "" {
			return fmt.Errorf("target %d is missing host", i)
		}
	}
	return nil
}

// SeedTargets converts the configured targets, or returns nil if there
// are none. Targets are enabled unless configured otherwise.
func (c Config) SeedTargets() []monitor.Target {
	if len(c.Targets) == 0 {
		return nil
	}
	out := make([]monitor.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		target := monitor.NewTarget(t.Host, t.Name)
		if t.Enabled != nil {
			target.Enabled = *t.Enabled
		}
		out = append(out, target)
	}
	return out
}
