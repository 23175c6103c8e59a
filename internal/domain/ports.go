package domain

import (
	"context"
	"time"
)

// IntentClassifier maps a free-text message plus conversation context to a
// structured Decision. Ordinary "don't know" cases come back as clarification
// or unresolved decisions; an error means an infrastructure failure
// (network, auth, unparseable model output).
type IntentClassifier interface {
	Classify(ctx context.Context, message string, convCtx Context) (Decision, error)
}

// ResponseFormatter turns structured results back into natural language.
type ResponseFormatter interface {
	// Format renders the raw result of an operation for the user.
	Format(ctx context.Context, operation string, result any, convCtx Context) (string, error)
	// Explain answers a question about a topic from a fixed knowledge base.
	Explain(ctx context.Context, topic, knowledgeBase string) (string, error)
	// Generate produces a free-form reply when no operation matches.
	Generate(ctx context.Context, message string, convCtx Context) (string, error)
}

// ConversationStore owns all conversation state. Unknown ids are never an
// error: reads return empty values and writes are logged no-ops, so a
// conversation that was evicted mid-thread simply loses continuity.
type ConversationStore interface {
	Create() ConversationID
	Context(id ConversationID) Context
	RecordUserTurn(id ConversationID, text string, decision Decision)
	RecordAssistantTurn(id ConversationID, text string)
	History(id ConversationID) []Turn
	Delete(id ConversationID) bool
	EvictOlderThan(maxAge time.Duration) int
}

// SubscriberQuery bounds and orders a subscriber listing.
type SubscriberQuery struct {
	Limit     int
	SortBy    string
	SortOrder string
}

// BroadcastDraft is the payload for creating a broadcast.
type BroadcastDraft struct {
	Subject         string
	Content         string
	EmailTemplateID string
}

// AccountAPI is the remote email-marketing account. One call per supported
// remote operation; results are the raw structured payloads so the
// formatter can surface ids and details verbatim.
type AccountAPI interface {
	ListTags(ctx context.Context) ([]Tag, error)
	CreateTag(ctx context.Context, name string) (Tag, error)
	TagSubscriberByEmail(ctx context.Context, email string, tagID int64) (map[string]any, error)
	ListSubscribers(ctx context.Context, q SubscriberQuery) ([]map[string]any, error)
	CountSubscribers(ctx context.Context) (int64, error)
	SubscriberByEmail(ctx context.Context, email string) (map[string]any, error)
	ListForms(ctx context.Context) ([]map[string]any, error)
	CreateForm(ctx context.Context, name, redirectURL string) (map[string]any, error)
	ListBroadcasts(ctx context.Context, limit int) ([]map[string]any, error)
	CreateBroadcast(ctx context.Context, draft BroadcastDraft) (map[string]any, error)
	AccountInfo(ctx context.Context) (map[string]any, error)
}
