package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
	"github.com/avadhbsd/DevinKitMCP/internal/observability"
)

const DefaultMaxHistory = 10

// ConversationStore is the in-memory implementation of
// domain.ConversationStore. It is NOT persistent; conversations live until
// they are deleted or evicted.
//
// One table-wide mutex serializes mutations. That keeps eviction's
// check-then-act atomic with respect to concurrent appends, and no caller
// ever holds the lock across I/O: the store only hands out copies.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*domain.Conversation
	maxHistory    int
	now           func() time.Time
}

// NewConversationStore creates a store keeping at most maxHistory exchanges
// (2×maxHistory turns) per conversation. Non-positive maxHistory falls back
// to DefaultMaxHistory.
func NewConversationStore(maxHistory int) *ConversationStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &ConversationStore{
		conversations: make(map[domain.ConversationID]*domain.Conversation),
		maxHistory:    maxHistory,
		now:           time.Now,
	}
}

// Create allocates a fresh conversation with empty history and context.
func (s *ConversationStore) Create() domain.ConversationID {
	id := domain.ConversationID(uuid.NewString())
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[id] = &domain.Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Context returns a snapshot of the conversation's structured context.
// Unknown ids yield an empty context, never an error.
func (s *ConversationStore) Context(id domain.ConversationID) domain.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return domain.Context{}
	}

	return domain.Context{
		LastOperation:  conv.LastOperation,
		LastParameters: copyParams(conv.LastParameters),
		History:        copyTurns(conv.Turns),
	}
}

// RecordUserTurn appends a user turn and updates the structured context from
// the decision. Unknown ids are a logged no-op: a conversation that was
// evicted mid-thread loses continuity instead of failing the turn.
func (s *ConversationStore) RecordUserTurn(id domain.ConversationID, text string, decision domain.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		observability.Logger().Warn("conversation not found, dropping user turn", "conversation_id", id)
		return
	}

	conv.Turns = append(conv.Turns, domain.Turn{
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: s.now(),
	})
	conv.LastOperation = decision.Operation
	conv.LastParameters = copyParams(decision.Parameters)
	s.finishAppend(conv)
}

// RecordAssistantTurn appends an assistant turn; same no-op-if-unknown policy.
func (s *ConversationStore) RecordAssistantTurn(id domain.ConversationID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		observability.Logger().Warn("conversation not found, dropping assistant turn", "conversation_id", id)
		return
	}

	conv.Turns = append(conv.Turns, domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      text,
		CreatedAt: s.now(),
	})
	s.finishAppend(conv)
}

// History returns the chronological transcript, empty if unknown.
func (s *ConversationStore) History(id domain.ConversationID) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}
	return copyTurns(conv.Turns)
}

// Delete removes a conversation, reporting whether it existed.
func (s *ConversationStore) Delete(id domain.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	return true
}

// EvictOlderThan removes every conversation whose last update is older than
// maxAge and returns how many were removed. Staleness is re-checked under
// the write lock, so an append racing with eviction wins.
func (s *ConversationStore) EvictOlderThan(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, conv := range s.conversations {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

// finishAppend enforces the history bound and refreshes the update time.
// Caller must hold the write lock.
func (s *ConversationStore) finishAppend(conv *domain.Conversation) {
	if max := 2 * s.maxHistory; len(conv.Turns) > max {
		conv.Turns = conv.Turns[len(conv.Turns)-max:]
	}
	conv.UpdatedAt = s.now()
}

func copyTurns(turns []domain.Turn) []domain.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

func copyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
