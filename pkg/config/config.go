// Package config provides configuration loading and management for stss.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"stss/pkg/filter"
	"stss/pkg/scalespace"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Scale-space parameters
	ScaleSpace struct {
		// Sigmas is the list of candidate derivative scales
		Sigmas []float64 `yaml:"sigmas"`

		// Rhos lists one integration scale per sigma, used without the ring filter
		Rhos []float64 `yaml:"rhos,omitempty"`

		// RingFilter selects ring-filter integration
		RingFilter bool `yaml:"ringFilter"`

		// CorrectScale converts selected scales to feature sizes
		CorrectScale bool `yaml:"correctScale"`

		// Gamma is the scale-normalization exponent
		Gamma float64 `yaml:"gamma"`

		// Truncate cuts filters at this many standard deviations
		Truncate float64 `yaml:"truncate"`
	} `yaml:"scaleSpace"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel filtering
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the directory results are written to
		Dir string `yaml:"dir"`

		// SaveImages writes PNG renderings of the scale map and orientation
		SaveImages bool `yaml:"saveImages"`

		// SaveRaw writes the raw float64 fields with YAML headers
		SaveRaw bool `yaml:"saveRaw"`

		// Verbose prints per-scale progress
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default scale-space parameters
	cfg.ScaleSpace.Sigmas = []float64{1, 2, 3, 4}
	cfg.ScaleSpace.RingFilter = true
	cfg.ScaleSpace.CorrectScale = true
	cfg.ScaleSpace.Gamma = scalespace.DefaultGamma
	cfg.ScaleSpace.Truncate = filter.DefaultOptions().Truncate

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.Dir = "stss_output"
	cfg.Output.SaveImages = true
	cfg.Output.SaveRaw = false
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for settings the optimizer would reject
func (c *Config) Validate() error {
	ss := c.ScaleSpace
	if len(ss.Sigmas) == 0 {
		return fmt.Errorf("at least one sigma is required")
	}
	for _, s := range ss.Sigmas {
		if s <= 0 {
			return fmt.Errorf("sigmas must be positive, got %g", s)
		}
	}
	if ss.CorrectScale && !ss.RingFilter {
		return fmt.Errorf("correctScale requires ringFilter")
	}
	if !ss.RingFilter && len(ss.Rhos) != len(ss.Sigmas) {
		return fmt.Errorf("need %d rhos without the ring filter, got %d", len(ss.Sigmas), len(ss.Rhos))
	}
	if ss.Truncate <= 0 {
		return fmt.Errorf("truncate must be positive, got %g", ss.Truncate)
	}
	return nil
}

// ScaleSpaceParams converts the configuration into optimizer parameters
func (c *Config) ScaleSpaceParams() *scalespace.Params {
	p := scalespace.DefaultParams(c.ScaleSpace.Sigmas...)
	p.Rhos = append([]float64(nil), c.ScaleSpace.Rhos...)
	p.RingFilter = c.ScaleSpace.RingFilter
	p.CorrectScale = c.ScaleSpace.CorrectScale
	p.Gamma = c.ScaleSpace.Gamma
	p.Truncate = c.ScaleSpace.Truncate
	p.Workers = c.Processing.NumCores
	return p
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
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
	return SaveConfig(DefaultConfig(), configPath)
}
