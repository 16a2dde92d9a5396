package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// CosineReranker re-scores each candidate as the cosine similarity between
// the query vector and a freshly computed embedding of the candidate's
// content. Embeddings are recomputed through the same provider that
// embedded the query, so both sides of the comparison share one vector
// space.
type CosineReranker struct {
	embed embedder.Embedder
}

// NewCosineReranker creates a reranker backed by the given embedding provider.
func NewCosineReranker(embed embedder.Embedder) *CosineReranker {
	return &CosineReranker{embed: embed}
}

// Rerank embeds every candidate's content (batched, concurrent under the
// provider), scores cosine similarity against queryVector, sorts descending
// with the original retrieval rank breaking ties, and returns the first
// finalK. A zero-norm candidate embedding scores 0.
func (r *CosineReranker) Rerank(ctx context.Context, queryVector []float32, candidates []vectorstore.SearchResult, finalK int) ([]ScoredCandidate, error) {
	if len(candidates) == 0 || finalK <= 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}

	vectors, err := r.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("reranking candidates: %w", err)
	}

	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{
			SearchResult: c,
			RerankScore:  vectorstore.CosineSimilarity(queryVector, vectors[i]),
		}
	}

	// Stable sort: equal scores keep retrieval order, first-retrieved wins.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})

	if len(scored) > finalK {
		scored = scored[:finalK]
	}
	return scored, nil
}

// Ensure CosineReranker implements Reranker.
var _ Reranker = (*CosineReranker)(nil)
