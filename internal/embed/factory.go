package embed

import "log"

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "local", "openai", or "ollama". Empty means local.
	Provider string
	// Model is the provider-specific model name.
	Model string
	// Endpoint overrides the provider's default URL.
	Endpoint string
	// APIKey authenticates remote providers.
	APIKey string
	// Dimensions sets the local embedder's bucket count; remote providers
	// have fixed per-model dimensions.
	Dimensions int
}

// NewEmbedder constructs the configured provider. Any construction or
// connectivity failure falls back to the local hash-bag embedder; indexing
// must never be blocked by a missing key or an unreachable server. The
// local embedder itself cannot fail, so this function returns no error.
func NewEmbedder(cfg Config) Embedder {
	switch cfg.Provider {
	case "", "local":
		return NewLocalEmbedder(cfg.Dimensions)

	case "openai":
		e, err := NewOpenAIEmbedder(cfg.APIKey, cfg.Endpoint, cfg.Model)
		if err != nil {
			log.Printf("openai embedder unavailable (%v), falling back to local embedder", err)
			return NewLocalEmbedder(cfg.Dimensions)
		}
		return e

	case "ollama":
		e, err := NewOllamaEmbedder(cfg.Endpoint, cfg.Model)
		if err != nil {
			log.Printf("ollama embedder unavailable (%v), falling back to local embedder", err)
			return NewLocalEmbedder(cfg.Dimensions)
		}
		return e

	default:
		log.Printf("unknown embedding provider %q, falling back to local embedder", cfg.Provider)
		return NewLocalEmbedder(cfg.Dimensions)
	}
}
