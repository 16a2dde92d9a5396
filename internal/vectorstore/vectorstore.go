// Package vectorstore provides interfaces and implementations for vector
// similarity search over the indexed corpus.
package vectorstore

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned (wrapped) when the vector store is unreachable
// or a query against it fails.
var ErrUnavailable = errors.New("vector index unavailable")

// Chunk represents a corpus chunk with its embedding, created during the
// offline index build and immutable afterwards.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Offset  int // rune offset into the source document
	Vector  []float32
}

// SearchResult represents a search result from the vector store.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Vector   []float32
	Metadata map[string]string
}

// VectorStore defines the interface for vector index operations.
//
// Rebuild is the offline write path; Search and SearchMMR are the online
// read paths. Rebuild must not run concurrently with queries against the
// generation it replaces.
type VectorStore interface {
	// Rebuild replaces the entire index with a new generation built from
	// chunks. The swap is atomic from the caller's point of view: queries
	// see either the old generation or the new one, never a mix.
	Rebuild(ctx context.Context, chunks []Chunk, dimension int) error

	// Search returns the topK chunks nearest to vector by cosine
	// similarity, best first. Returns fewer than topK only if the index
	// holds fewer chunks.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)

	// SearchMMR returns up to topK chunks selected by maximal marginal
	// relevance: the result set trades pure similarity rank for reduced
	// redundancy, optimizing coverage of the query's topic.
	SearchMMR(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)

	// Count reports the number of chunks in the current generation.
	Count(ctx context.Context) (uint64, error)
}

// CosineSimilarity computes the cosine similarity between two vectors:
// dot product divided by the product of L2 norms. A zero-norm vector
// yields 0, never a division fault. Mismatched lengths also yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
