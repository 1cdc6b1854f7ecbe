package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvConfigPath overrides the default settings file location.
const EnvConfigPath = "COLORLOOP_CONFIG"

// settingsFileName is created in the user's home directory.
const settingsFileName = ".colorloop"

// Config represents the runtime options of a single invocation.
// Bridge settings live in Settings; everything here comes from flags.
type Config struct {
	SettingsPath string
	EnvFile      string
	Hue          HueConfig
	Log          LogConfig
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Timeout          time.Duration // Bound for each bridge request
	DiscoveryTimeout time.Duration // How long to collect SSDP responses
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string
	JSON   bool
	Colors bool
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "warn"
	}
	return strings.ToLower(c.Level)
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() error {
	if c.SettingsPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.SettingsPath = path
	}
	if c.Hue.Timeout == 0 {
		c.Hue.Timeout = 10 * time.Second
	}
	if c.Hue.DiscoveryTimeout == 0 {
		c.Hue.DiscoveryTimeout = 3 * time.Second
	}
	return nil
}

// DefaultPath returns the settings file location: $COLORLOOP_CONFIG if set,
// otherwise ~/.colorloop.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, settingsFileName), nil
}
