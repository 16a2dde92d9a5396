package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusdesk/assistant/internal/repository"
)

const (
	// TitleMaxRunes bounds a derived session title. Longer question text is
	// cut to this prefix and ellipsis-suffixed.
	TitleMaxRunes = 30

	// placeholderTitle seeds sessions started without a first message.
	placeholderTitle = "New Chat"
)

// ChatService drives the chat session lifecycle: open/close transitions,
// turn recording, and display title derivation. Mutual exclusion per
// session is delegated to the repository's transactional operations.
type ChatService struct {
	sessions repository.SessionRepository
}

// NewChatService creates a new ChatService.
func NewChatService(sessions repository.SessionRepository) *ChatService {
	return &ChatService{sessions: sessions}
}

// Start opens a new session for userID. Any session the user already has
// open is closed by the same transition, so at most one session per user is
// ever open. A non-blank firstMessage seeds the placeholder title and is
// recorded as the session's first user message.
func (s *ChatService) Start(ctx context.Context, userID uuid.UUID, firstMessage string) (*repository.Session, error) {
	firstMessage = strings.TrimSpace(firstMessage)

	title := firstMessage
	if title == "" {
		title = placeholderTitle
	}

	session, err := s.sessions.StartSession(ctx, userID, title, firstMessage)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return session, nil
}

// Close transitions a session from open to closed. Closing an
// already-closed session is a no-op; there is no transition back to open.
func (s *ChatService) Close(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.CloseSession(ctx, sessionID); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}

// RecordTurn appends the question and answer as one atomic user/bot
// message pair. On the exchange that brings the session's qualifying
// message count to exactly three, the session title is replaced with a
// value derived from the question.
func (s *ChatService) RecordTurn(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	if _, err := s.sessions.AppendTurn(ctx, sessionID, question, answer, DeriveTitle(question)); err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}
	return nil
}

// Messages returns a session's transcript in creation order.
func (s *ChatService) Messages(ctx context.Context, sessionID uuid.UUID) ([]*repository.Message, error) {
	messages, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return messages, nil
}

// RecomputeTitle re-derives a session's title from the given text. Valid
// for closed sessions too: title recomputation is the only write a closed
// session accepts.
func (s *ChatService) RecomputeTitle(ctx context.Context, sessionID uuid.UUID, fromText string) error {
	if err := s.sessions.SetTitle(ctx, sessionID, DeriveTitle(fromText)); err != nil {
		return fmt.Errorf("recomputing title: %w", err)
	}
	return nil
}

// DeriveTitle produces a session display title from question text: the
// first TitleMaxRunes runes, ellipsis-suffixed when truncated.
func DeriveTitle(question string) string {
	question = strings.TrimSpace(question)
	runes := []rune(question)
	if len(runes) <= TitleMaxRunes {
		return question
	}
	return string(runes[:TitleMaxRunes]) + "..."
}
