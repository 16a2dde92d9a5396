// Package reranker provides a precision re-ranking pass over first-stage
// retrieval results.
//
// The first retrieval stage runs diversity-aware (MMR-style) search, which
// optimizes recall and topic coverage; its output order is not a reliable
// proxy for per-chunk relevance. This second pass restores precision
// ranking before the bounded prompt context is assembled.
package reranker

import (
	"context"

	"github.com/campusdesk/assistant/internal/vectorstore"
)

// ScoredCandidate pairs a retrieved chunk with its recomputed relevance
// score. It exists only within one query's execution.
type ScoredCandidate struct {
	vectorstore.SearchResult
	RerankScore float32
}

// Reranker defines the interface for re-ranking retrieval candidates
// against a query vector. The returned sequence holds at most finalK
// candidates, most relevant first.
type Reranker interface {
	Rerank(ctx context.Context, queryVector []float32, candidates []vectorstore.SearchResult, finalK int) ([]ScoredCandidate, error)
}
