package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrStartup marks configuration problems that abort a run before any
// statement is processed
var ErrStartup = errors.New("startup error")

// Config holds the application configuration
type Config struct {
	InputDir   string `yaml:"input_dir"`
	OutputPath string `yaml:"output_path,omitempty"` // Default: <input_dir>/extracted_electricity_data.<ext>
	Format     string `yaml:"format,omitempty"`      // csv, xlsx or sqlite (fallback: csv)
	Preview    *bool  `yaml:"preview,omitempty"`     // Print the table before exporting (fallback: true)
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Template returns the config written by "config init"
func Template(inputDir string) *Config {
	preview := true
	return &Config{
		InputDir: inputDir,
		Format:   "csv",
		Preview:  &preview,
	}
}

// GetFormat returns the export format name with a default of csv
func (c *Config) GetFormat() string {
	if c.Format == "" {
		return "csv"
	}
	return c.Format
}

// GetPreview reports whether the table should be printed before export
func (c *Config) GetPreview() bool {
	if c.Preview == nil {
		return true
	}
	return *c.Preview
}

// ApplyOverrides replaces config values with the non-empty flag values
func (c *Config) ApplyOverrides(inputDir, outputPath, format string) {
	if inputDir != "" {
		c.InputDir = inputDir
	}
	if outputPath != "" {
		c.OutputPath = outputPath
	}
	if format != "" {
		c.Format = format
	}
}

// ValidateInputDir checks that the input directory is set and is a directory
func (c *Config) ValidateInputDir() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: no input directory given (use --dir or set input_dir in the config file)", ErrStartup)
	}

	info, err := os.Stat(c.InputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: input directory %s does not exist", ErrStartup, c.InputDir)
		}
		return fmt.Errorf("%w: checking input directory %s: %v", ErrStartup, c.InputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input path %s is not a directory", ErrStartup, c.InputDir)
	}

	return nil
}
