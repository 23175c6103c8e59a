package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/avadhbsd/DevinKitMCP/internal/app/dispatcher"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

// ServiceFactory builds a dispatcher bound to request-scoped credentials.
// The transport owns credential extraction; the core never sees a missing
// key.
type ServiceFactory func(kitKey, claudeKey string) *dispatcher.Service

// Probes are the collaborator checks behind the status endpoints.
type Probes struct {
	// Kit verifies account-API credentials, returning account details.
	Kit func(ctx context.Context, kitKey string) (map[string]any, error)
	// Claude verifies model credentials with a probe classification.
	Claude func(ctx context.Context, claudeKey string) error
}

type Server struct {
	store      domain.ConversationStore
	newService ServiceFactory
	probes     Probes

	// Env-sourced fallbacks when a request carries no credential headers.
	defaultKitKey    string
	defaultClaudeKey string
}

type Options struct {
	Store            domain.ConversationStore
	NewService       ServiceFactory
	Probes           Probes
	DefaultKitKey    string
	DefaultClaudeKey string
}

func NewServer(opts Options) http.Handler {
	s := &Server{
		store:            opts.Store,
		newService:       opts.NewService,
		probes:           opts.Probes,
		defaultKitKey:    opts.DefaultKitKey,
		defaultClaudeKey: opts.DefaultClaudeKey,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/status/kit", s.handleKitStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/status/claude", s.handleClaudeStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return chainMiddlewares(r, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

type turnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type conversationResponse struct {
	ConversationID string         `json:"conversation_id"`
	Messages       []turnResponse `json:"messages"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	kitKey := s.kitKeyFor(r)
	if kitKey == "" {
		badRequest(w, "Kit.com API key is required")
		return
	}
	claudeKey := s.claudeKeyFor(r)
	if claudeKey == "" {
		badRequest(w, "Claude API key is required")
		return
	}

	svc := s.newService(kitKey, claudeKey)
	out, err := svc.ProcessMessage(r.Context(), dispatcher.ProcessMessageInput{
		ConversationID: domain.ConversationID(req.ConversationID),
		Text:           req.Message,
	})
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       out.Response,
		ConversationID: string(out.ConversationID),
	})
}

func (s *Server) handleKitStatus(w http.ResponseWriter, r *http.Request) {
	kitKey := s.kitKeyFor(r)
	if kitKey == "" {
		badRequest(w, "Kit.com API key is required")
		return
	}

	account, err := s.probes.Kit(r.Context(), kitKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to connect to Kit.com API",
		})
		return
	}

	name := "Unknown"
	if acc, ok := account["account"].(map[string]any); ok {
		if n, ok := acc["name"].(string); ok && n != "" {
			name = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "connected",
		"account": name,
	})
}

func (s *Server) handleClaudeStatus(w http.ResponseWriter, r *http.Request) {
	claudeKey := s.claudeKeyFor(r)
	if claudeKey == "" {
		badRequest(w, "Claude API key is required")
		return
	}

	if err := s.probes.Claude(r.Context(), claudeKey); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "failed to connect to Claude API",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(mux.Vars(r)["id"])

	turns := s.store.History(id)
	out := conversationResponse{
		ConversationID: string(id),
		Messages:       make([]turnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		out.Messages = append(out.Messages, turnResponse{
			Role:      string(t.Role),
			Content:   t.Text,
			Timestamp: t.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(mux.Vars(r)["id"])

	if !s.store.Delete(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ─────────────────────────────────────────────
// Credential extraction
// ─────────────────────────────────────────────

func (s *Server) kitKeyFor(r *http.Request) string {
	if k := r.Header.Get("X-Kit-Api-Key"); k != "" {
		return k
	}
	return s.defaultKitKey
}

func (s *Server) claudeKeyFor(r *http.Request) string {
	if k := r.Header.Get("X-Claude-Api-Key"); k != "" {
		return k
	}
	return s.defaultClaudeKey
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
