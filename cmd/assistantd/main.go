package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusdesk/assistant/internal/config"
	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/llm"
	"github.com/campusdesk/assistant/internal/repository"
	"github.com/campusdesk/assistant/internal/repository/postgres"
	"github.com/campusdesk/assistant/internal/reranker"
	"github.com/campusdesk/assistant/internal/server"
	"github.com/campusdesk/assistant/internal/service"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting assistant service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"index", cfg.IndexName,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	sessionRepo := postgres.NewSessionRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.IndexName)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant", "index", cfg.IndexName)

	// Initialize embedding backend
	embed, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	slog.Info("initialized embedder", "backend", cfg.EmbeddingBackend, "model", embed.ModelName())

	// Initialize generative backend
	llmClient, answerModel, err := buildLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}
	slog.Info("initialized LLM", "backend", cfg.LLMBackend, "model", answerModel)

	// Assemble the pipeline
	rerank := reranker.NewCosineReranker(embed)
	answerer := service.NewAnswerer(llmClient,
		service.WithModel(answerModel),
		service.WithMaxContextChars(cfg.MaxContextChars),
	)
	chatSvc := service.NewChatService(sessionRepo)
	querySvc := service.NewQueryService(embed, vectorStore, rerank, answerer, chatSvc, sessionRepo,
		service.WithTopK(cfg.RetrievalTopK),
		service.WithFinalK(cfg.RerankFinalK),
	)

	handlers := server.NewHandlers(querySvc, chatSvc, vectorStore, slog.Default())

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		JWTSecret:      cfg.JWTSecret,
	}, handlers)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
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

// buildLLM selects the generative backend from configuration and returns
// the model name the answerer should request.
func buildLLM(cfg *config.Config) (llm.LLM, string, error) {
	switch cfg.LLMBackend {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, "", fmt.Errorf("GROQ_API_KEY is required for the groq backend")
		}
		client := llm.NewGroqClient(cfg.GroqAPIKey, llm.WithGroqModel(cfg.GroqModel))
		return client, cfg.GroqModel, nil
	case "ollama":
		client := llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
		)
		return client, cfg.OllamaLLMModel, nil
	default:
		return nil, "", fmt.Errorf("unknown LLM backend %q", cfg.LLMBackend)
	}
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.SessionRepository = (*postgres.SessionRepo)(nil)
	_ vectorstore.VectorStore      = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder            = (*embedder.OllamaEmbedder)(nil)
	_ embedder.Embedder            = (*embedder.OpenAIEmbedder)(nil)
	_ llm.LLM                      = (*llm.GroqClient)(nil)
	_ llm.LLM                      = (*llm.OllamaClient)(nil)
)
