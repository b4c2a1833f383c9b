// Package config provides configuration loading and management for niftibridge.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Degenerate slice policies.
const (
	DegenerateZero    = "zero"
	DegenerateMidGray = "midgray"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Export parameters for the volume-to-raster conversion
	Export struct {
		// Quality is the JPEG encoding quality (1-100)
		Quality int `yaml:"quality"`

		// Format is the raster file format, "jpg" or "png"
		Format string `yaml:"format"`

		// DegeneratePolicy selects the output for constant slices: "zero" or "midgray"
		DegeneratePolicy string `yaml:"degeneratePolicy"`

		// OutputSuffix is appended to the scan name to derive the default output folder
		OutputSuffix string `yaml:"outputSuffix"`
	} `yaml:"export"`

	// Import parameters for the annotation-to-volume conversion
	Import struct {
		// Extension is the annotation record file extension
		Extension string `yaml:"extension"`

		// SkipInvalid skips bad annotation files instead of aborting the batch
		SkipInvalid bool `yaml:"skipInvalid"`

		// OutputName is the default segmentation file name, placed next to the reference scan
		OutputName string `yaml:"outputName"`
	} `yaml:"import"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// File is a rotating log file; empty logs to stderr
		File string `yaml:"file"`

		// MaxSizeMB is the size in megabytes before the log file is rotated
		MaxSizeMB int `yaml:"maxSizeMB"`

		// MaxAgeDays is how long rotated log files are kept
		MaxAgeDays int `yaml:"maxAgeDays"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Export.Quality = 95
	cfg.Export.Format = "jpg"
	cfg.Export.DegeneratePolicy = DegenerateZero
	cfg.Export.OutputSuffix = "_jpg"

	cfg.Import.Extension = ".json"
	cfg.Import.SkipInvalid = false
	cfg.Import.OutputName = "segmentation.nii.gz"

	cfg.Output.Verbose = true

	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxAgeDays = 30

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export.quality must be between 1 and 100, got %d", c.Export.Quality)
	}
	switch strings.ToLower(c.Export.Format) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("export.format must be jpg or png, got %q", c.Export.Format)
	}
	switch c.Export.DegeneratePolicy {
	case DegenerateZero, DegenerateMidGray:
	default:
		return fmt.Errorf("export.degeneratePolicy must be %q or %q, got %q",
			DegenerateZero, DegenerateMidGray, c.Export.DegeneratePolicy)
	}
	if !strings.HasPrefix(c.Import.Extension, ".") {
		return fmt.Errorf("import.extension must start with a dot, got %q", c.Import.Extension)
	}
	if c.Import.OutputName == "" {
		return fmt.Errorf("import.outputName must not be empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
