// Package config loads client settings from an optional YAML file, then
// SIMTEMP_* environment variables. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every client operation.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Probe   ProbeConfig   `yaml:"probe"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type DeviceConfig struct {
	Path      string `yaml:"path"`
	SysfsGlob string `yaml:"sysfs_glob"`
	// SysfsBase skips discovery when set.
	SysfsBase string `yaml:"sysfs_base"`
}

type ProbeConfig struct {
	FallbackPeriod time.Duration `yaml:"fallback_period"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9101".
	Addr string `yaml:"addr"`
}

// PathEnv names the settings file when no path is given on the command line.
const PathEnv = "SIMTEMP_CONFIG"

// PathFromEnv returns the settings file named by PathEnv, or "".
func PathFromEnv() string {
	return getEnv(PathEnv, "")
}

// Load reads path (if non-empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Device.Path = getEnv("SIMTEMP_DEV", c.Device.Path)
	c.Device.SysfsGlob = getEnv("SIMTEMP_SYSFS_GLOB", c.Device.SysfsGlob)
	c.Device.SysfsBase = getEnv("SIMTEMP_SYSFS", c.Device.SysfsBase)
	c.Log.Level = getEnv("SIMTEMP_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("SIMTEMP_LOG_FORMAT", c.Log.Format)
	c.Metrics.Addr = getEnv("SIMTEMP_METRICS_ADDR", c.Metrics.Addr)

	if v := os.Getenv("SIMTEMP_FALLBACK_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMTEMP_FALLBACK_MS: %w", err)
		}
		c.Probe.FallbackPeriod = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Device.Path == "" {
		c.Device.Path = "/dev/simtemp"
	}
	if c.Device.SysfsGlob == "" {
		c.Device.SysfsGlob = "/sys/class/misc/simtemp*"
	}
	if c.Probe.FallbackPeriod == 0 {
		c.Probe.FallbackPeriod = 100 * time.Millisecond
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the settings for values no operation can use.
func (c *Config) Validate() error {
	if c.Probe.FallbackPeriod < 0 {
		return errors.New("probe.fallback_period must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
