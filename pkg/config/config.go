package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the remedy configuration
type Config struct {
	// Provider settings
	Provider ProviderConfig `yaml:"provider"`

	// Input/Output paths
	Paths PathsConfig `yaml:"paths"`

	// Planning limits and thresholds
	Planning PlanningConfig `yaml:"planning"`
}

// ProviderConfig holds AI ordering provider settings
type ProviderConfig struct {
	Name        string  `yaml:"name"`         // claude, openai
	Model       string  `yaml:"model"`        // optional, provider-specific model
	BaseURL     string  `yaml:"base-url"`     // optional, OpenAI-compatible endpoint
	Temperature float64 `yaml:"temperature"`  // 0.0-1.0
	Enabled     bool    `yaml:"enabled"`      // Enable AI-assisted ordering
	TimeoutSecs int     `yaml:"timeout-secs"` // Bound on the ordering call
}

// PathsConfig holds input/output path settings
type PathsConfig struct {
	Snapshot  string `yaml:"snapshot"`  // Directory holding snapshot.yaml
	Output    string `yaml:"output"`    // Directory the plan is written to
	Workspace string `yaml:"workspace"` // Directory holding the local store
}

// PlanningConfig holds synthesis limits
type PlanningConfig struct {
	MaxSteps           int     `yaml:"max-steps"`            // Step cap per plan
	MinConfidenceFloor float64 `yaml:"min-confidence-floor"` // Lowest assignable confidence
	FailureThreshold   int     `yaml:"failure-threshold"`    // Failures before the historical-failure penalty
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        "claude",
			Temperature: 0.2,
			TimeoutSecs: 30,
		},
		Paths: PathsConfig{
			Snapshot: ".",
			Output:   ".remedy-plan",
		},
		Planning: PlanningConfig{
			MaxSteps:           50,
			MinConfidenceFloor: 0.1,
			FailureThreshold:   2,
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w\n\n"+
			"Please check that the file is valid YAML and follows the expected format.\n"+
			"See README.md for example configuration.", path, err)
	}

	return config, nil
}

// FindConfigFile searches for a config file in common locations
// Returns the path to the first config file found, or empty string if none found
func FindConfigFile() string {
	// Check current directory first
	candidates := []string{
		".remedy.yaml",
		".remedy.yml",
	}

	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		for _, candidate := range candidates {
			path := filepath.Join(homeDir, candidate)
			if fileExists(path) {
				return path
			}
		}
	}

	return ""
}

// LoadOrDefault attempts to load a config file, falling back to defaults
func LoadOrDefault() *Config {
	configPath := FindConfigFile()
	if configPath == "" {
		return DefaultConfig()
	}

	config, err := Load(configPath)
	if err != nil {
		// Log the error but return defaults
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n\n")
		return DefaultConfig()
	}

	return config
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
