// Command indexctl rebuilds the corpus index from plain-text files. It
// splits, embeds, and atomically swaps in a new index generation; the
// serving process picks up the new generation without a restart.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/campusdesk/assistant/internal/config"
	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/ingestion"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	chunkSize := flag.Int("chunk-size", 0, "segment size in runes (default from CHUNK_SIZE)")
	chunkOverlap := flag.Int("chunk-overlap", 0, "segment overlap in runes (default from CHUNK_OVERLAP)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <corpus-file>...\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("no corpus files given")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *chunkOverlap > 0 {
		cfg.ChunkOverlap = *chunkOverlap
	}

	docs, err := readCorpus(flag.Args())
	if err != nil {
		return err
	}

	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.IndexName)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	embed, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	slog.Info("building index",
		"index", cfg.IndexName,
		"backend", cfg.EmbeddingBackend,
		"model", embed.ModelName(),
		"chunk_size", cfg.ChunkSize,
		"chunk_overlap", cfg.ChunkOverlap,
	)

	splitter := ingestion.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := ingestion.NewPipeline(splitter, embed, store, slog.Default())

	stats, err := pipeline.Build(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d documents into %d chunks (dimension %d)\n",
		stats.Documents, stats.Chunks, stats.Dimension)
	return nil
}

// buildEmbedder selects the embedding backend from configuration.
func buildEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case "openai":
		return embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbeddingModel,
			Timeout: cfg.ExternalTimeout,
		})
	case "ollama":
		return embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
			Timeout: cfg.ExternalTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
	}
}

// readCorpus loads each named file as one document. The file's base name
// becomes the chunk source label.
func readCorpus(paths []string) ([]ingestion.Document, error) {
	docs := make([]ingestion.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading corpus file: %w", err)
		}
		docs = append(docs, ingestion.Document{
			Source: filepath.Base(path),
			Text:   string(data),
		})
	}
	return docs, nil
}
