package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

type stubEmbedder struct {
	dimension int
	err       error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dimension), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return s.dimension }
func (s *stubEmbedder) ModelName() string { return "stub" }

var _ embedder.Embedder = (*stubEmbedder)(nil)

type recordingStore struct {
	chunks    []vectorstore.Chunk
	dimension int
	rebuilds  int
	err       error
}

func (r *recordingStore) Rebuild(_ context.Context, chunks []vectorstore.Chunk, dimension int) error {
	if r.err != nil {
		return r.err
	}
	r.chunks = chunks
	r.dimension = dimension
	r.rebuilds++
	return nil
}

func (r *recordingStore) Search(context.Context, []float32, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (r *recordingStore) SearchMMR(context.Context, []float32, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (r *recordingStore) Count(context.Context) (uint64, error) {
	return uint64(len(r.chunks)), nil
}

var _ vectorstore.VectorStore = (*recordingStore)(nil)

func TestPipeline_BuildIndexesAllDocuments(t *testing.T) {
	store := &recordingStore{}
	p := NewPipeline(NewSplitter(50, 10), &stubEmbedder{dimension: 4}, store, nil)

	docs := []Document{
		{Source: "tuition.txt", Text: strings.Repeat("Tuition is due by week one. ", 10)},
		{Source: "library.txt", Text: "The library closes at midnight."},
	}

	stats, err := p.Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", stats.Documents)
	}
	if stats.Chunks != len(store.chunks) {
		t.Errorf("stats chunks %d disagree with stored %d", stats.Chunks, len(store.chunks))
	}
	if stats.Chunks < 3 {
		t.Errorf("expected the long document to split, got %d chunks", stats.Chunks)
	}
	if store.dimension != 4 {
		t.Errorf("expected dimension 4, got %d", store.dimension)
	}
	if store.rebuilds != 1 {
		t.Errorf("expected exactly one rebuild, got %d", store.rebuilds)
	}

	for i, c := range store.chunks {
		if c.ID == "" {
			t.Errorf("chunk %d missing ID", i)
		}
		if c.Source == "" {
			t.Errorf("chunk %d missing source", i)
		}
		if len(c.Vector) != 4 {
			t.Errorf("chunk %d has %d-dim vector", i, len(c.Vector))
		}
	}
}

func TestPipeline_SkipsBlankSegments(t *testing.T) {
	store := &recordingStore{}
	p := NewPipeline(NewSplitter(50, 10), &stubEmbedder{dimension: 2}, store, nil)

	_, err := p.Build(context.Background(), []Document{
		{Source: "blank.txt", Text: "   \n\n   \t  "},
		{Source: "real.txt", Text: "One real sentence."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.chunks) != 1 {
		t.Fatalf("expected whitespace-only content filtered, got %d chunks", len(store.chunks))
	}
	if store.chunks[0].Source != "real.txt" {
		t.Errorf("unexpected surviving chunk source %q", store.chunks[0].Source)
	}
}

func TestPipeline_EmbedderFailureAborts(t *testing.T) {
	store := &recordingStore{}
	p := NewPipeline(NewSplitter(50, 10), &stubEmbedder{err: embedder.ErrUnavailable}, store, nil)

	_, err := p.Build(context.Background(), []Document{{Source: "a.txt", Text: "some text"}})
	if !errors.Is(err, embedder.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
	if store.rebuilds != 0 {
		t.Error("expected no rebuild after embedding failure")
	}
}

func TestPipeline_StoreFailureSurfaces(t *testing.T) {
	store := &recordingStore{err: vectorstore.ErrUnavailable}
	p := NewPipeline(NewSplitter(50, 10), &stubEmbedder{dimension: 2}, store, nil)

	_, err := p.Build(context.Background(), []Document{{Source: "a.txt", Text: "some text"}})
	if !errors.Is(err, vectorstore.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
}
