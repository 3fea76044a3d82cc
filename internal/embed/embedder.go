// Package embed provides pluggable text embedders for the semantic index.
// Three implementations sit behind one interface: a zero-configuration local
// hash-bag embedder, an OpenAI-compatible batch API client, and an Ollama
// local-server client. The factory falls back to the local embedder when a
// configured remote provider cannot be constructed.
package embed

import "context"

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	// Dimensions returns the vector length this embedder produces.
	Dimensions() int

	// Embed converts one text into its vector representation.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts, preserving order. Implementations
	// with a true batch API override the naive per-item loop.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// embedOneByOne is the default batch strategy: a per-item loop.
func embedOneByOne(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
