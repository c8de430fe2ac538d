// Package config loads the project-level loom.yaml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the loom.yaml configuration.
type Config struct {
	// TemplatesDir is where template sources live, searched recursively.
	TemplatesDir string `yaml:"templates,omitempty"`

	// OutDir receives generated programs and the build manifest.
	OutDir string `yaml:"out,omitempty"`

	// Namespace is the project's component namespace, used to derive
	// template identities (namespace/name).
	Namespace string `yaml:"namespace,omitempty"`

	// Shadow selects the style encapsulation mode: "synthetic" weaves
	// scope tokens into generated output, "native" leaves scoping to the
	// host environment.
	Shadow string `yaml:"shadow,omitempty"`

	// Props optionally pins the public property contract per template
	// identity. Templates without an entry skip reference validation.
	Props map[string][]string `yaml:"props,omitempty"`

	// Build configuration
	Build *BuildConfig `yaml:"build,omitempty"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty"`
}

// BuildConfig contains batch-build configuration.
type BuildConfig struct {
	// Workers caps compile parallelism; 0 means one per CPU.
	Workers int `yaml:"workers,omitempty"`

	// NoCache disables the content-addressed build cache.
	NoCache bool `yaml:"noCache,omitempty"`

	// CacheDir is where cached programs live.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// Manifest is the manifest filename written under OutDir.
	Manifest string `yaml:"manifest,omitempty"`
}

// DevConfig contains development server configuration.
type DevConfig struct {
	// Server port
	Port int `yaml:"port,omitempty"`

	// Server host
	Host string `yaml:"host,omitempty"`

	// Whether to open the browser on start
	Open bool `yaml:"open,omitempty"`
}

// Load loads configuration from loom.yaml in projectPath, falling back to
// defaults when the file does not exist.
func Load(projectPath string) (*Config, error) {
	configPath := filepath.Join(projectPath, "loom.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &config, nil
}

// Save writes configuration to loom.yaml in projectPath.
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, "loom.yaml"), data, 0644)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TemplatesDir: "src",
		OutDir:       "dist",
		Namespace:    "x",
		Shadow:       "synthetic",
		Build: &BuildConfig{
			Workers:  0,
			CacheDir: filepath.Join(".loom", "cache"),
			Manifest: "manifest.json",
		},
		Dev: &DevConfig{
			Port: 8080,
			Host: "localhost",
			Open: false,
		},
	}
}

// applyDefaults fills in defaults for missing values.
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.TemplatesDir == "" {
		config.TemplatesDir = defaults.TemplatesDir
	}
	if config.OutDir == "" {
		config.OutDir = defaults.OutDir
	}
	if config.Namespace == "" {
		config.Namespace = defaults.Namespace
	}
	if config.Shadow == "" {
		config.Shadow = defaults.Shadow
	}

	if config.Build == nil {
		config.Build = defaults.Build
	} else {
		if config.Build.CacheDir == "" {
			config.Build.CacheDir = defaults.Build.CacheDir
		}
		if config.Build.Manifest == "" {
			config.Build.Manifest = defaults.Build.Manifest
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if c.Shadow != "synthetic" && c.Shadow != "native" {
		return fmt.Errorf("shadow must be %q or %q, got %q", "synthetic", "native", c.Shadow)
	}
	return nil
}

// NativeShadow reports whether scope tokens should stay out of generated
// output.
func (c *Config) NativeShadow() bool {
	return c.Shadow == "native"
}

// PropsFor returns the public property contract for a template identity,
// nil when none is pinned.
func (c *Config) PropsFor(identity string) []string {
	if c.Props == nil {
		return nil
	}
	return c.Props[identity]
}
