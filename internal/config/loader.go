package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults, then config file, then environment (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (TLDR_*)
// 2. Config file (.tldr/config.yml or .tldr/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".tldr")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("TLDR")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., TLDR_EMBEDDING_PROVIDER).
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("analysis.max_files")
	v.BindEnv("analysis.workers")
	v.BindEnv("cache.enabled")
	v.BindEnv("cache.dir")
	v.BindEnv("cache.memory_capacity")
	v.BindEnv("cache.ttl_hours")
	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.endpoint")
	v.BindEnv("embedding.api_key")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("index.path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable; defaults plus env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("analysis.layers", defaults.Analysis.Layers)
	v.SetDefault("analysis.include", defaults.Analysis.Include)
	v.SetDefault("analysis.exclude", defaults.Analysis.Exclude)
	v.SetDefault("analysis.max_files", defaults.Analysis.MaxFiles)
	v.SetDefault("analysis.workers", defaults.Analysis.Workers)

	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.memory_capacity", defaults.Cache.MemoryCapacity)
	v.SetDefault("cache.ttl_hours", defaults.Cache.TTLHours)

	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.endpoint", defaults.Embedding.Endpoint)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)

	v.SetDefault("index.path", defaults.Index.Path)
}

// LoadConfig loads configuration using the current working directory as the
// root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
