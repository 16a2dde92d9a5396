// Package repository defines domain models and data access interfaces for
// chat sessions and their message transcripts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrSessionClosed is returned when a turn is recorded against a closed
// session. Closed sessions can only be read, never written or reopened.
var ErrSessionClosed = errors.New("session is closed")

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// QualifyingTitleCount is the user/bot message count at which a session's
// display title is derived from the question text: the seed message plus
// the first full question/answer exchange.
const QualifyingTitleCount = 3

// Session represents one chat session. At most one session per user is
// open at a time; sessions are never physically deleted.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Status    SessionStatus
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Message represents one chat message, append-only and ordered by creation
// within its session.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// SessionRepository defines operations for chat session persistence.
//
// StartSession and AppendTurn are transactional units: each runs under the
// session row's lock so the single-open-session and title-derivation
// invariants hold under concurrent requests.
type SessionRepository interface {
	// StartSession closes any open session belonging to userID, then
	// creates a new open session with the given placeholder title. A
	// non-empty seedMessage is recorded as a user-sender message.
	StartSession(ctx context.Context, userID uuid.UUID, title, seedMessage string) (*Session, error)

	// CloseSession transitions a session to closed. Closing an
	// already-closed session is a no-op.
	CloseSession(ctx context.Context, sessionID uuid.UUID) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	// GetOpenSession retrieves the user's open session, if any.
	GetOpenSession(ctx context.Context, userID uuid.UUID) (*Session, error)

	// LatestSession retrieves the user's most recently created session.
	LatestSession(ctx context.Context, userID uuid.UUID) (*Session, error)

	// AppendTurn appends the question as a user message and the answer as
	// a bot message in one atomic unit (both or neither), rejecting closed
	// sessions with ErrSessionClosed. When the insert brings the session's
	// qualifying message count to exactly QualifyingTitleCount, the
	// session title is set to derivedTitle in the same transaction.
	// Returns the qualifying message count after the insert.
	AppendTurn(ctx context.Context, sessionID uuid.UUID, question, answer, derivedTitle string) (int, error)

	// ListMessages returns a session's messages in creation order.
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error)

	// CountQualifyingMessages counts the session's user/bot-sender messages.
	CountQualifyingMessages(ctx context.Context, sessionID uuid.UUID) (int, error)

	// SetTitle overwrites a session's display title.
	SetTitle(ctx context.Context, sessionID uuid.UUID, title string) error
}
