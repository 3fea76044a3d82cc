package embed

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalDimensions is the bucket count for the hash-bag embedder.
const DefaultLocalDimensions = 256

// LocalEmbedder is the hash-bag embedder: each token is hashed into one of
// N fixed buckets, term frequencies are accumulated, and the vector is
// L2-normalized. Deterministic and offline; semantic quality is lower than
// a learned model, which is why it is the fallback rather than the default
// recommendation.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder creates a hash-bag embedder. dimensions <= 0 selects the
// default bucket count.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// Dimensions returns the bucket count.
func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

// Embed hashes tokens into buckets and normalizes.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	tf := float32(1) / float32(len(tokens))
	for _, token := range tokens {
		vec[e.bucket(token)] += tf
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch loops; there is no cheaper batch path locally.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedOneByOne(ctx, e, texts)
}

// bucket maps a token to a bucket index via MD5 mod N.
func (e *LocalEmbedder) bucket(token string) int {
	sum := md5.Sum([]byte(token))
	return int(binary.BigEndian.Uint32(sum[:4]) % uint32(e.dimensions))
}

// tokenize lower-cases and splits on non-alphanumeric boundaries.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
