package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

func TestCreateInitializesEmptyConversation(t *testing.T) {
	store := NewConversationStore(10)

	id := store.Create()
	require.NotEmpty(t, id)

	ctx := store.Context(id)
	assert.Empty(t, ctx.History)
	assert.Empty(t, ctx.LastOperation)
	assert.Empty(t, store.History(id))
}

func TestContextUnknownIDIsEmpty(t *testing.T) {
	store := NewConversationStore(10)

	ctx := store.Context(domain.ConversationID("nope"))
	assert.Equal(t, domain.Context{}, ctx)
}

func TestRecordTurnsUpdatesContext(t *testing.T) {
	store := NewConversationStore(10)
	id := store.Create()

	decision := domain.OperationDecision("count_tags", map[string]any{"x": 1})
	store.RecordUserTurn(id, "how many tags do I have?", decision)
	store.RecordAssistantTurn(id, "You have 7 tags.")

	ctx := store.Context(id)
	assert.Equal(t, "count_tags", ctx.LastOperation)
	assert.Equal(t, map[string]any{"x": 1}, ctx.LastParameters)

	history := store.History(id)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "how many tags do I have?", history[0].Text)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestRecordTurnUnknownIDIsNoOp(t *testing.T) {
	store := NewConversationStore(10)

	assert.NotPanics(t, func() {
		store.RecordUserTurn("ghost", "hello", domain.UnresolvedDecision())
		store.RecordAssistantTurn("ghost", "hi")
	})
	assert.Empty(t, store.History("ghost"))
}

func TestHistoryBoundIsFIFO(t *testing.T) {
	const maxHistory = 3
	store := NewConversationStore(maxHistory)
	id := store.Create()

	for i := 0; i < 5; i++ {
		store.RecordUserTurn(id, fmt.Sprintf("user %d", i), domain.UnresolvedDecision())
		store.RecordAssistantTurn(id, fmt.Sprintf("assistant %d", i))
	}

	history := store.History(id)
	require.Len(t, history, 2*maxHistory)

	// The most recent maxHistory exchanges survive; the oldest are gone.
	assert.Equal(t, "user 2", history[0].Text)
	assert.Equal(t, "assistant 4", history[len(history)-1].Text)
}

func TestHistoryBoundHoldsAfterEveryTurn(t *testing.T) {
	const maxHistory = 2
	store := NewConversationStore(maxHistory)
	id := store.Create()

	for i := 0; i < 20; i++ {
		store.RecordUserTurn(id, "u", domain.UnresolvedDecision())
		assert.LessOrEqual(t, len(store.History(id)), 2*maxHistory)
		store.RecordAssistantTurn(id, "a")
		assert.LessOrEqual(t, len(store.History(id)), 2*maxHistory)
	}
}

func TestDelete(t *testing.T) {
	store := NewConversationStore(10)
	id := store.Create()

	assert.True(t, store.Delete(id))
	assert.False(t, store.Delete(id))
	assert.Empty(t, store.History(id))
}

func TestEvictOlderThanRemovesOnlyStale(t *testing.T) {
	store := NewConversationStore(10)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	stale := store.Create()
	current = current.Add(2 * time.Hour)
	fresh := store.Create()
	store.RecordUserTurn(fresh, "hello", domain.UnresolvedDecision())

	removed := store.EvictOlderThan(time.Hour)
	assert.Equal(t, 1, removed)

	assert.Equal(t, domain.Context{}, store.Context(stale))

	history := store.History(fresh)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)
}

func TestEvictOlderThanKeepsRecentlyTouched(t *testing.T) {
	store := NewConversationStore(10)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	id := store.Create()
	current = current.Add(50 * time.Minute)
	// The append refreshes last-updated, so the conversation is not stale.
	store.RecordAssistantTurn(id, "still here")
	current = current.Add(30 * time.Minute)

	assert.Equal(t, 0, store.EvictOlderThan(time.Hour))
	assert.Len(t, store.History(id), 1)
}

func TestConcurrentAppendsDoNotCorruptHistory(t *testing.T) {
	const (
		workers = 8
		turns   = 50
	)
	store := NewConversationStore(workers * turns) // bound never reached
	id := store.Create()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				store.RecordUserTurn(id, fmt.Sprintf("w%d-%d", w, i), domain.UnresolvedDecision())
			}
		}(w)
	}
	wg.Wait()

	history := store.History(id)
	assert.Len(t, history, workers*turns)
	for _, turn := range history {
		assert.NotEmpty(t, turn.Text)
		assert.Equal(t, domain.RoleUser, turn.Role)
	}
}

func TestConcurrentEvictionAndAppends(t *testing.T) {
	store := NewConversationStore(10)

	ids := make([]domain.ConversationID, 20)
	for i := range ids {
		ids[i] = store.Create()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, id := range ids {
			store.RecordUserTurn(id, "ping", domain.UnresolvedDecision())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			store.EvictOlderThan(time.Hour)
		}
	}()
	wg.Wait()

	// Nothing was stale, so nothing may have been evicted.
	for _, id := range ids {
		assert.Len(t, store.History(id), 1)
	}
}
