package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidLayers indicates a layer number outside 1-5.
	ErrInvalidLayers = errors.New("invalid analysis layers")

	// ErrInvalidCacheSettings indicates invalid cache configuration.
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidMaxFiles indicates an invalid file cap.
	ErrInvalidMaxFiles = errors.New("invalid max_files")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	for _, n := range cfg.Layers {
		if n < 1 || n > 5 {
			errs = append(errs, fmt.Errorf("%w: layer must be 1-5, got %d", ErrInvalidLayers, n))
		}
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: max_files cannot be negative, got %d", ErrInvalidMaxFiles, cfg.MaxFiles))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers cannot be negative, got %d", cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	var errs []error

	if cfg.MemoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: memory_capacity cannot be negative, got %d", ErrInvalidCacheSettings, cfg.MemoryCapacity))
	}
	if cfg.TTLHours < 0 {
		errs = append(errs, fmt.Errorf("%w: ttl_hours cannot be negative, got %d", ErrInvalidCacheSettings, cfg.TTLHours))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "", "local", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'local', 'openai', or 'ollama', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	if provider == "local" && cfg.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("%w: dimensions cannot be negative, got %d", ErrInvalidDimensions, cfg.Dimensions))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear
// formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
