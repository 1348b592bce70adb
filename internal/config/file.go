// Package config loads settings and owns the process-wide Configuration.
//
// A Configuration is built at most once per Cell. The result of that single
// attempt, success or failure, is what every later lookup sees; there is no
// retry path short of restarting the process.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/schedule"
)

// File is the on-disk configuration.
type File struct {
	Store      StoreConfig      `yaml:"store"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	// Driver is sqlite, badger or memory.
	Driver string `yaml:"driver"`

	// Path is the SQLite file or Badger directory.
	Path string `yaml:"path"`

	// SeedDefaultSegment creates the "Default" time segment in a fresh store.
	SeedDefaultSegment bool `yaml:"seed_default_segment"`
}

// SchedulingConfig selects the scheduling strategy.
type SchedulingConfig struct {
	Strategy string `yaml:"strategy"`
}

// LoggingConfig configures logx.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig toggles gateway instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

var validDrivers = []string{"sqlite", "badger", "memory"}

// Default returns the configuration used when no file exists.
func Default() File {
	return File{
		Store: StoreConfig{
			Driver:             "sqlite",
			Path:               DefaultPath(),
			SeedDefaultSegment: true,
		},
		Scheduling: SchedulingConfig{Strategy: string(schedule.Default)},
		Logging:    LoggingConfig{Level: "info", Format: "console"},
	}
}

// DefaultPath is the SQLite file under the user's data directory, or
// "eva.db" in the working directory if no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "eva", "eva.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "eva.db"
	}
	return filepath.Join(home, ".local", "share", "eva", "eva.db")
}

// DefaultFile is the configuration file read when none is given.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "eva", "config.yaml")
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return File{}, errs.Configuration("while reading the configuration file", err)
	}
	if err := decode(data, &cfg); err != nil {
		return File{}, errs.Configuration("while reading the configuration file", fmt.Errorf("%s: %w", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over Default without touching the filesystem.
func Parse(data []byte) (File, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return File{}, errs.Configuration("while reading the configuration file", err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks values that yaml cannot.
func (f File) Validate() error {
	driver := strings.ToLower(f.Store.Driver)
	known := false
	for _, d := range validDrivers {
		if d == driver {
			known = true
		}
	}
	if !known {
		return errs.Configuration("while validating the configuration",
			fmt.Errorf("store.driver %q must be one of %v", f.Store.Driver, validDrivers))
	}
	if driver != "memory" && f.Store.Path == "" {
		return errs.Configuration("while validating the configuration",
			fmt.Errorf("store.path is required for the %s driver", driver))
	}
	if _, err := schedule.ParseStrategy(f.Scheduling.Strategy); err != nil {
		return errs.Configuration("while validating the configuration", err)
	}
	return nil
}
