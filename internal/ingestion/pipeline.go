package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// Document is one plain-text corpus source supplied at index-build time.
type Document struct {
	Source string
	Text   string
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Documents int
	Chunks    int
	Dimension int
}

// Pipeline runs the offline indexing pass: split each document into
// overlapping segments, embed them in batch, and replace the index with a
// new generation. One pipeline build never mixes embedding backends; the
// generation's dimensionality is fixed by the provider used to build it.
type Pipeline struct {
	splitter *Splitter
	embed    embedder.Embedder
	store    vectorstore.VectorStore
	logger   *slog.Logger
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(splitter *Splitter, embed embedder.Embedder, store vectorstore.VectorStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		splitter: splitter,
		embed:    embed,
		store:    store,
		logger:   logger,
	}
}

// Build indexes docs into a fresh generation, atomically replacing the
// prior one. Blank segments are filtered before embedding; the embedding
// provider never sees whitespace-only input from this path.
func (p *Pipeline) Build(ctx context.Context, docs []Document) (BuildStats, error) {
	var texts []string
	var chunks []vectorstore.Chunk

	for _, doc := range docs {
		segments := p.splitter.Split(doc.Text)
		for _, seg := range segments {
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			texts = append(texts, seg.Text)
			chunks = append(chunks, vectorstore.Chunk{
				ID:      uuid.NewString(),
				Content: seg.Text,
				Source:  doc.Source,
				Offset:  seg.Offset,
			})
		}
		p.logger.Info("split document", "source", doc.Source, "segments", len(segments))
	}

	vectors, err := p.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return BuildStats{}, fmt.Errorf("embedding corpus: %w", err)
	}

	dimension := p.embed.Dimension()
	for i := range chunks {
		chunks[i].Vector = vectors[i]
		if len(vectors[i]) > 0 {
			dimension = len(vectors[i])
		}
	}

	if err := p.store.Rebuild(ctx, chunks, dimension); err != nil {
		return BuildStats{}, fmt.Errorf("rebuilding index: %w", err)
	}

	stats := BuildStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Dimension: dimension,
	}
	p.logger.Info("index rebuilt", "documents", stats.Documents, "chunks", stats.Chunks, "dimension", stats.Dimension)
	return stats, nil
}
