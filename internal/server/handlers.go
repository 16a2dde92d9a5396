package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusdesk/assistant/internal/embedder"
	"github.com/campusdesk/assistant/internal/llm"
	"github.com/campusdesk/assistant/internal/repository"
	"github.com/campusdesk/assistant/internal/service"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// Handlers bundles the chat API route handlers and their collaborators.
type Handlers struct {
	query  *service.QueryService
	chat   *service.ChatService
	index  vectorstore.VectorStore
	logger *slog.Logger
}

// NewHandlers creates the chat API handlers.
func NewHandlers(query *service.QueryService, chat *service.ChatService, index vectorstore.VectorStore, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		query:  query,
		chat:   chat,
		index:  index,
		logger: logger,
	}
}

type askRequest struct {
	Question  string `json:"question"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type startSessionRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type sessionResponse struct {
	SessionID string     `json:"session_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type messageResponse struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Ask answers a question and records the exchange in the caller's session.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, ok := h.resolveUser(w, r, req.UserID)
	if !ok {
		return
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		var err error
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session_id format")
			return
		}
	}

	answer, err := h.query.Ask(r.Context(), service.AskRequest{
		Question:  req.Question,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

// StartSession opens a new chat session for the caller.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, ok := h.resolveUser(w, r, req.UserID)
	if !ok {
		return
	}

	session, err := h.chat.Start(r.Context(), userID, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: session.ID.String(),
		Title:     session.Title,
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt,
		EndedAt:   session.EndedAt,
	})
}

// CloseSession closes a session; closing twice is not an error.
func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID format")
		return
	}

	if err := h.chat.Close(r.Context(), sessionID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMessages returns a session's transcript in order.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID format")
		return
	}

	messages, err := h.chat.Messages(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]messageResponse, len(messages))
	for i, m := range messages {
		out[i] = messageResponse{
			Sender:    string(m.Sender),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// resolveUser determines the calling user: the authenticated token subject
// when present, else the user_id supplied in the request body.
func (h *Handlers) resolveUser(w http.ResponseWriter, r *http.Request, bodyUserID string) (uuid.UUID, bool) {
	if userID, ok := UserFromContext(r.Context()); ok {
		return userID, true
	}

	if bodyUserID == "" {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(bodyUserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id format")
		return uuid.Nil, false
	}
	return userID, true
}

// writeServiceError maps core error kinds to HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "question text is required")
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "chat session not found")
	case errors.Is(err, repository.ErrSessionClosed):
		writeError(w, http.StatusConflict, "chat session is closed")
	case errors.Is(err, embedder.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "embedding backend unavailable")
	case errors.Is(err, vectorstore.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "vector index unavailable")
	case errors.Is(err, llm.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "answer generation unavailable")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
