package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiModelDims is the fixed dimension lookup per supported model.
var openaiModelDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// maxEmbedInputChars bounds each input before sending; the API rejects
// over-long inputs and truncated code text still embeds usefully.
const maxEmbedInputChars = 8000

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint with true
// batching.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates the remote embedder. It fails when the model is
// unknown or no API key is supplied; the factory turns that failure into a
// local fallback.
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*OpenAIEmbedder, error) {
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims, ok := openaiModelDims[model]
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", model)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder requires an API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIEmbedder{
		client:     &client,
		model:      model,
		dimensions: dims,
	}, nil
}

// Dimensions returns the model's fixed output dimensionality.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Embed sends a single-item batch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request, truncating over-long inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		if len(text) > maxEmbedInputChars {
			text = text[:maxEmbedInputChars]
		}
		inputs[i] = text
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
