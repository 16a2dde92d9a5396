package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/assistant/internal/repository"
)

// SessionRepo implements repository.SessionRepository
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, user_id, title, status, created_at, ended_at`

// StartSession closes the user's open sessions and creates a new open one,
// optionally seeding it with a first user message, all in one transaction.
func (r *SessionRepo) StartSession(ctx context.Context, userID uuid.UUID, title, seedMessage string) (*repository.Session, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE chat_sessions
		SET status = 'closed', ended_at = now()
		WHERE user_id = $1 AND status = 'open'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to close previous sessions: %w", err)
	}

	var session repository.Session
	err = tx.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING `+sessionColumns,
		uuid.New(), userID, title,
	).Scan(&session.ID, &session.UserID, &session.Title, &session.Status, &session.CreatedAt, &session.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if seedMessage != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (id, session_id, sender, message)
			VALUES ($1, $2, 'user', $3)
		`, uuid.New(), session.ID, seedMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to record seed message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &session, nil
}

// CloseSession transitions a session to closed; closing a closed session is
// a no-op.
func (r *SessionRepo) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE chat_sessions
		SET status = 'closed', ended_at = now()
		WHERE id = $1 AND status = 'open'
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish "already closed" (a no-op) from "does not exist".
		var exists bool
		err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)`, sessionID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
	}

	return nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*repository.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`
	return r.scanSession(ctx, query, sessionID)
}

// GetOpenSession retrieves the user's open session, if any.
func (r *SessionRepo) GetOpenSession(ctx context.Context, userID uuid.UUID) (*repository.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE user_id = $1 AND status = 'open'`
	return r.scanSession(ctx, query, userID)
}

// LatestSession retrieves the user's most recently created session.
func (r *SessionRepo) LatestSession(ctx context.Context, userID uuid.UUID) (*repository.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanSession(ctx, query, userID)
}

func (r *SessionRepo) scanSession(ctx context.Context, query string, args ...any) (*repository.Session, error) {
	var session repository.Session
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&session.ID, &session.UserID, &session.Title, &session.Status,
		&session.CreatedAt, &session.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// AppendTurn inserts the question/answer pair atomically under the session
// row lock and assigns the derived title when the qualifying message count
// reaches exactly repository.QualifyingTitleCount.
func (r *SessionRepo) AppendTurn(ctx context.Context, sessionID uuid.UUID, question, answer, derivedTitle string) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent turns on the same session.
	var status repository.SessionStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM chat_sessions WHERE id = $1 FOR UPDATE
	`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("failed to lock session: %w", err)
	}
	if status != repository.SessionOpen {
		return 0, repository.ErrSessionClosed
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, message)
		VALUES ($1, $3, 'user', $4), ($2, $3, 'bot', $5)
	`, uuid.New(), uuid.New(), sessionID, question, answer)
	if err != nil {
		return 0, fmt.Errorf("failed to append turn: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE session_id = $1 AND sender IN ('user', 'bot')
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	if count == repository.QualifyingTitleCount && derivedTitle != "" {
		_, err = tx.Exec(ctx, `UPDATE chat_sessions SET title = $2 WHERE id = $1`, sessionID, derivedTitle)
		if err != nil {
			return 0, fmt.Errorf("failed to set session title: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return count, nil
}

// ListMessages returns a session's messages in creation order.
func (r *SessionRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*repository.Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, session_id, sender, message, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at, seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*repository.Message
	for rows.Next() {
		var msg repository.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// CountQualifyingMessages counts the session's user/bot-sender messages.
func (r *SessionRepo) CountQualifyingMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE session_id = $1 AND sender IN ('user', 'bot')
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SetTitle overwrites a session's display title.
func (r *SessionRepo) SetTitle(ctx context.Context, sessionID uuid.UUID, title string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE chat_sessions SET title = $2 WHERE id = $1`, sessionID, title)
	if err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure SessionRepo implements repository.SessionRepository
var _ repository.SessionRepository = (*SessionRepo)(nil)
