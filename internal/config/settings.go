package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LightID identifies a light on the bridge. The bridge uses numeric ids, but
// the settings file and flags may carry either a number or a light name.
type LightID string

// UnmarshalYAML implements yaml.Unmarshaler for LightID so that both
// `light: 3` and `light: "3"` decode to the same value.
func (l *LightID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("light: expected a scalar, got %s", value.ShortTag())
	}
	if value.ShortTag() == "!!null" {
		*l = ""
		return nil
	}
	*l = LightID(value.Value)
	return nil
}

// Int returns the numeric bridge id, if the value is one.
func (l LightID) Int() (int, bool) {
	id, err := strconv.Atoi(string(l))
	if err != nil {
		return 0, false
	}
	return id, true
}

// String returns the raw value
func (l LightID) String() string {
	return string(l)
}

// Settings is the flat key-value cache persisted between runs.
type Settings struct {
	Host     string  `yaml:"host,omitempty"`
	Username string  `yaml:"username,omitempty"`
	Light    LightID `yaml:"light,omitempty"`
}

// Merge combines settings layers ordered from lowest to highest precedence.
// A non-empty field in a later layer replaces the field from earlier layers;
// empty fields never override.
func Merge(layers ...Settings) Settings {
	var out Settings
	for _, l := range layers {
		if l.Host != "" {
			out.Host = l.Host
		}
		if l.Username != "" {
			out.Username = l.Username
		}
		if l.Light != "" {
			out.Light = l.Light
		}
	}
	return out
}

// File is a settings file on disk.
type File struct {
	Path string
}

// NewFile returns the settings file at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads the settings file. A missing file yields empty settings.
func (f *File) Load() (Settings, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	return s, nil
}

// Save writes s to the settings file, replacing its contents.
func (f *File) Save(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	// The file holds the bridge token.
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}
