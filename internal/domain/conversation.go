package domain

// Turn is a single message within a conversation. Turns are append-only:
// once recorded they are never mutated, only evicted by the history bound.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"content"`
	CreatedAt Timestamp `json:"timestamp"`
}

// Conversation is one identified exchange between a user and the assistant.
// It is owned exclusively by the store; other components only ever see
// copies handed out by Context and History.
type Conversation struct {
	ID        ConversationID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	// Turns holds at most 2×maxHistory entries (one user and one
	// assistant slot per exchange), oldest dropped first.
	Turns []Turn

	// Structured context derived from the last classifier decision.
	LastOperation  string
	LastParameters map[string]any
}

// Context is the snapshot of a conversation passed to the classifier and
// the formatter. An unknown conversation id yields the zero Context.
type Context struct {
	LastOperation  string         `json:"last_operation,omitempty"`
	LastParameters map[string]any `json:"last_parameters,omitempty"`
	History        []Turn         `json:"history,omitempty"`
}
