// Package config provides configuration loading and management for hyperstack.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"hyperstack/internal/logging"
	"hyperstack/pkg/parallel"
)

// Config represents the application configuration
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores" toml:"num_cores"`

		// MaxAllocBytes caps a single frame allocation; 0 disables the check
		MaxAllocBytes int64 `yaml:"maxAllocBytes" toml:"max_alloc_bytes"`

		// BlockSize is the number of columns copied per block when restacking along X
		BlockSize int `yaml:"blockSize" toml:"block_size"`
	} `yaml:"processing" toml:"processing"`

	// Logging parameters
	Logging logging.LogConfig `yaml:"logging" toml:"logging"`

	// Output parameters
	Output struct {
		// Directory receives rendered frames and description sidecars
		Directory string `yaml:"directory" toml:"directory"`

		// JPEGQuality is the quality used when saving frames
		JPEGQuality int `yaml:"jpegQuality" toml:"jpeg_quality"`

		// SaveSlices writes every X, Y and Z slice in addition to the projection
		SaveSlices bool `yaml:"saveSlices" toml:"save_slices"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.MaxAllocBytes = 0
	cfg.Processing.BlockSize = 64

	cfg.Logging.Level = "info"
	cfg.Logging.MaxSize = 100
	cfg.Logging.MaxAge = 30

	// Set default output parameters
	cfg.Output.Directory = "output"
	cfg.Output.JPEGQuality = 95
	cfg.Output.SaveSlices = false
	cfg.Output.Verbose = true

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML file, or a TOML file if the
// extension is .toml.  If the file doesn't exist, it returns the default configuration
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

	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configured values.
func (c *Config) Validate() error {
	if c.Processing.NumCores < 0 {
		return fmt.Errorf("numCores must not be negative, got %d", c.Processing.NumCores)
	}
	if c.Processing.MaxAllocBytes < 0 {
		return fmt.Errorf("maxAllocBytes must not be negative, got %d", c.Processing.MaxAllocBytes)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("jpegQuality must be in [1,100], got %d", c.Output.JPEGQuality)
	}
	if c.Logging.Level != "" {
		if _, err := logging.ParseMode(c.Logging.Level); err != nil {
			return err
		}
	}
	return nil
}

// Apply pushes the processing and logging settings into the running process.
func (c *Config) Apply() error {
	parallel.SetDefaultWorkers(c.Processing.NumCores)
	if err := c.Logging.SetLogger(); err != nil {
		return err
	}
	if !c.Output.Verbose && logging.Mode() < logging.WarningMode {
		logging.SetLogMode(logging.WarningMode)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file, or a TOML file if the
// extension is .toml
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	// Write to file
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
