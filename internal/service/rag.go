// Package service implements the query pipeline and the chat session
// lifecycle that gates it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/repository"
	"github.com/campusdesk/assistant/internal/reranker"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// ErrInvalidQuery is returned for empty or blank question text.
var ErrInvalidQuery = errors.New("question text is empty")

// ErrSessionNotFound is returned when the referenced session does not
// exist or belongs to a different user.
var ErrSessionNotFound = errors.New("chat session not found")

const (
	// DefaultTopK is the first-stage diversity search candidate count.
	DefaultTopK = 8

	// DefaultFinalK is the reranked chunk count fed to the synthesizer.
	DefaultFinalK = 3
)

// AskRequest is one question against the indexed corpus on behalf of a
// user. SessionID may be uuid.Nil, in which case the user's most recent
// session receives the turn.
type AskRequest struct {
	Question  string
	UserID    uuid.UUID
	SessionID uuid.UUID
}

// QueryService runs the online retrieve→rerank→synthesize pipeline and
// records each exchange in the caller's chat session. All collaborators
// are injected at construction and shared across requests.
type QueryService struct {
	embed    embedder.Embedder
	index    vectorstore.VectorStore
	reranker reranker.Reranker
	answerer *Answerer
	chat     *ChatService
	sessions repository.SessionRepository
	logger   *slog.Logger

	topK   int
	finalK int
}

// QueryServiceOption is a functional option for configuring QueryService.
type QueryServiceOption func(*QueryService)

// WithTopK sets the first-stage retrieval candidate count.
func WithTopK(k int) QueryServiceOption {
	return func(s *QueryService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithFinalK sets the post-rerank chunk count.
func WithFinalK(k int) QueryServiceOption {
	return func(s *QueryService) {
		if k > 0 {
			s.finalK = k
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) QueryServiceOption {
	return func(s *QueryService) {
		s.logger = logger
	}
}

// NewQueryService creates a new QueryService.
func NewQueryService(
	embed embedder.Embedder,
	index vectorstore.VectorStore,
	rerank reranker.Reranker,
	answerer *Answerer,
	chat *ChatService,
	sessions repository.SessionRepository,
	opts ...QueryServiceOption,
) *QueryService {
	s := &QueryService{
		embed:    embed,
		index:    index,
		reranker: rerank,
		answerer: answerer,
		chat:     chat,
		sessions: sessions,
		logger:   slog.Default(),
		topK:     DefaultTopK,
		finalK:   DefaultFinalK,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ask answers a question from the indexed corpus and records the exchange
// as one atomic turn in the resolved session. No step is retried here:
// backend failures surface to the caller with their error kind, and the
// turn is only recorded after synthesis fully succeeds, so cancellation at
// any suspension point leaves no partial session state.
func (s *QueryService) Ask(ctx context.Context, req AskRequest) (string, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", ErrInvalidQuery
	}

	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return "", err
	}

	start := time.Now()

	queryVector, err := s.embed.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	// Stage one: diversity-aware search, wide for recall.
	candidates, err := s.index.SearchMMR(ctx, queryVector, s.topK)
	if err != nil {
		return "", fmt.Errorf("searching index: %w", err)
	}

	// Stage two: precision rerank by recomputed cosine similarity.
	reranked, err := s.reranker.Rerank(ctx, queryVector, candidates, s.finalK)
	if err != nil {
		return "", err
	}

	topChunks := make([]vectorstore.SearchResult, len(reranked))
	for i, c := range reranked {
		topChunks[i] = c.SearchResult
	}

	answer, err := s.answerer.Answer(ctx, question, topChunks)
	if err != nil {
		return "", err
	}

	if err := s.chat.RecordTurn(ctx, session.ID, question, answer); err != nil {
		return "", err
	}

	s.logger.Info("answered question",
		"session_id", session.ID,
		"candidates", len(candidates),
		"context_chunks", len(topChunks),
		"duration", time.Since(start),
	)

	return answer, nil
}

// resolveSession maps the request to the session receiving this turn: the
// referenced session when an ID is supplied (it must belong to the
// requesting user), otherwise the user's most recent session.
func (s *QueryService) resolveSession(ctx context.Context, req AskRequest) (*repository.Session, error) {
	if req.SessionID != uuid.Nil {
		session, err := s.sessions.GetSession(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, fmt.Errorf("resolving session: %w", err)
		}
		if session.UserID != req.UserID {
			return nil, ErrSessionNotFound
		}
		return session, nil
	}

	session, err := s.sessions.LatestSession(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("resolving latest session: %w", err)
	}
	return session, nil
}
