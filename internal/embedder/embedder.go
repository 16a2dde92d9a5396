// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
)

// ErrUnavailable is returned (wrapped) when the embedding backend cannot be
// reached or fails to produce a vector. Callers treat it as fatal for the
// current request; retry policy, if any, belongs to the caller.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder defines the interface for text embedding services.
//
// All vectors returned by one configured backend have identical
// dimensionality. Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	// Whitespace-only input is embedded as-is, never rejected.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	// Semantically identical to calling Embed per element, but may issue
	// requests concurrently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelConfig holds configuration for a specific embedding model.
type ModelConfig struct {
	Dimension     int // Embedding dimension
	ContextLength int // Max tokens the model can process
}

// KnownModels maps embedding model names to their configurations.
var KnownModels = map[string]ModelConfig{
	"all-minilm": {
		Dimension:     384,
		ContextLength: 256,
	},
	"nomic-embed-text": {
		Dimension:     768,
		ContextLength: 8192,
	},
	"mxbai-embed-large": {
		Dimension:     1024,
		ContextLength: 512,
	},
	"text-embedding-3-small": {
		Dimension:     1536,
		ContextLength: 8191,
	},
}

// GetModelConfig returns the configuration for a model, or defaults if unknown.
func GetModelConfig(modelName string) ModelConfig {
	if cfg, ok := KnownModels[modelName]; ok {
		return cfg
	}
	// Conservative defaults for unknown models
	return ModelConfig{
		Dimension:     768,
		ContextLength: 2048,
	}
}
